package main

import (
	"io"
	"os"
	"time"

	tex2html "github.com/alnah/go-tex2html"
	"github.com/alnah/go-tex2html/internal/config"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now    func() time.Time
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Config *config.Config // used when --config is not given

	// Engine replaces pandoc when set. Production leaves it nil.
	Engine tex2html.Engine
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:    time.Now,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Config: config.DefaultConfig(),
	}
}
