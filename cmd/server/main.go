package main

import (
	"log"

	"github.com/fitpeak/fitpeak-api/app"
)

func main() {
	application, err := app.New(app.WithMail())
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	application.Run()
}
