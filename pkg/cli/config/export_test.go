package config

import (
	"io"
	"log/slog"
)

func (c *Logger) ConfigureWriter(w io.Writer) (*slog.Logger, error) {
	return c.configure(w)
}
