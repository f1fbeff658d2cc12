package main

import (
	"shrike/internal/app"

	"github.com/charmbracelet/log"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal("scrape run terminated", "error", err)
	}
}
