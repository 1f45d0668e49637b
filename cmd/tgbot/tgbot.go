package main

import (
	"context"

	"github.com/DenisKhanov/PeakPacer/internal/app/tbot"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx := context.Background()

	app, err := tbot.NewApp(ctx)
	if err != nil {
		logrus.Fatalf("failed to init app: %s", err.Error())
	}

	app.Run()
}
