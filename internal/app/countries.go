package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/RRaffay/nuntium-em/internal/gdelt"
)

func runCountries(args []string) int {
	fs := flag.NewFlagSet("countries", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	for _, country := range gdelt.Countries() {
		fmt.Printf("%s  %s\n", country.Code, country.Name)
	}
	return 0
}
