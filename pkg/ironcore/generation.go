package ironcore

import (
	"fmt"
	"strings"
)

// Generation names one revision of the hosted API. Generations differ only in
// their default endpoint; request shapes always follow the current one.
type Generation string

const (
	GenerationV1 Generation = "1"
	GenerationV3 Generation = "3"

	// DefaultGeneration is used when no generation is requested.
	DefaultGeneration = GenerationV3
)

// Endpoint holds the connection defaults of one generation.
type Endpoint struct {
	Protocol   string
	Host       string
	Port       int
	APIVersion string
}

var generations = map[Generation]Endpoint{
	GenerationV1: {Protocol: "https", Host: "mq-aws-us-east-1.iron.io", Port: 443, APIVersion: "1"},
	GenerationV3: {Protocol: "https", Host: "mq-aws-us-east-1-1.iron.io", Port: 443, APIVersion: "3"},
}

// Defaults returns the endpoint defaults for gen.
func Defaults(gen Generation) (Endpoint, error) {
	if gen == "" {
		gen = DefaultGeneration
	}
	ep, ok := generations[gen]
	if !ok {
		return Endpoint{}, &ConfigurationError{
			Field:  "generation",
			Reason: fmt.Sprintf("unknown api generation %q", string(gen)),
		}
	}
	return ep, nil
}

// ParseGeneration accepts "3", "v3" and the like.
func ParseGeneration(raw string) (Generation, error) {
	raw = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "v")
	if raw == "" {
		return DefaultGeneration, nil
	}
	gen := Generation(raw)
	if _, err := Defaults(gen); err != nil {
		return "", err
	}
	return gen, nil
}

// Generations lists the known generations.
func Generations() []Generation {
	return []Generation{GenerationV1, GenerationV3}
}
