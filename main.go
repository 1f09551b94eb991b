package main

import "github.com/esumbrandon/Schnei/internal/cli"

// @title Schnei API
// @version 1.0
// @description Subscription tracking: spend totals, renewals and reminders
// @host localhost:8080
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cli.Execute()
}
