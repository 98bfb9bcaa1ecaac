package logger

import (
	"strings"

	"github.com/pkg/errors"
)

type Level int

const (
	LevelOff Level = iota
	LevelError
	LevelInfo
	LevelDebug
)

var levelMap = map[string]Level{
	"OFF":   LevelOff,
	"ERROR": LevelError,
	"INFO":  LevelInfo,
	"DEBUG": LevelDebug,
}

func (l Level) String() string {
	for s, level := range levelMap {
		if level == l {
			return s
		}
	}
	return "UNKNOWN"
}

func ParseLevel(s string) (Level, error) {
	level, ok := levelMap[strings.ToUpper(s)]
	if !ok {
		return -1, errors.Errorf("invalid level: %s", s)
	}
	return level, nil
}
