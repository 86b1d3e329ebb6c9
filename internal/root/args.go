package root

import (
	"errors"
	"fmt"
	"strings"

	"github.com/drewfead/marquee/internal/theaters"
)

var (
	ErrUnknownCity = errors.New("unknown city")
	ErrTooManyArgs = errors.New("too many arguments")
)

const defaultDateExpr = "today"

// target is what the positional arguments resolved to.
type target struct {
	City     string
	Theaters []string
	DateExpr string
}

// resolveArgs reads up to two positional tokens in either order. The first
// token naming a city in the catalog is the city; the other is the date.
func resolveArgs(catalog *theaters.Catalog, args []string, defaultCity string) (target, error) {
	switch len(args) {
	case 0:
		return withCity(catalog, defaultCity, defaultDateExpr)
	case 1:
		list, ok, err := catalog.Lookup(args[0])
		if err != nil {
			return target{}, err
		}
		if ok {
			return target{City: args[0], Theaters: list, DateExpr: defaultDateExpr}, nil
		}
		return withCity(catalog, defaultCity, args[0])
	case 2:
		for i, candidate := range args {
			list, ok, err := catalog.Lookup(candidate)
			if err != nil {
				return target{}, err
			}
			if ok {
				return target{City: candidate, Theaters: list, DateExpr: args[1-i]}, nil
			}
		}
		return target{}, unknownCity(catalog, args[0])
	}
	return target{}, fmt.Errorf("%w: expected [city] [date], got %q", ErrTooManyArgs, strings.Join(args, " "))
}

func withCity(catalog *theaters.Catalog, city, dateExpr string) (target, error) {
	list, ok, err := catalog.Lookup(city)
	if err != nil {
		return target{}, err
	}
	if !ok {
		return target{}, unknownCity(catalog, city)
	}
	return target{City: city, Theaters: list, DateExpr: dateExpr}, nil
}

func unknownCity(catalog *theaters.Catalog, city string) error {
	cities, err := catalog.Cities()
	if err != nil || len(cities) == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownCity, city)
	}
	return fmt.Errorf("%w: %q (known: %s)", ErrUnknownCity, city, strings.Join(cities, ", "))
}
