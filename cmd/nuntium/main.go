package main

import (
	"os"

	"github.com/RRaffay/nuntium-em/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
