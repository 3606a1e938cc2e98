package main

import (
	"newsdigest/cmd/handlers"
	"newsdigest/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
