package entity

import (
	"fmt"
	"strings"
	"unicode"
)

// Downstream is one service the gateway routes to, e.g. "users" behind /api/users.
type Downstream struct {
	Name       string
	PathPrefix string
	URL        string
	HealthAddr string
}

// ServiceName is the singular service id, e.g. "user-service".
func (d Downstream) ServiceName() string {
	return singular(d.Name) + "-service"
}

// Fallback is the body returned while a downstream cannot be reached.
type Fallback struct {
	Message string `json:"message"`
	Service string `json:"service"`
}

func (d Downstream) Fallback() Fallback {
	title := []rune(singular(d.Name))
	if len(title) > 0 {
		title[0] = unicode.ToUpper(title[0])
	}
	return Fallback{
		Message: fmt.Sprintf("%s Service is currently unavailable. Please try again later.", string(title)),
		Service: d.ServiceName(),
	}
}

func singular(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), "s")
}
