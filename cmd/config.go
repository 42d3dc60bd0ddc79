package main

import (
	"chat-rooms/domain"
	"chat-rooms/errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Config struct {
	Host                    string        `env:"HOST"`
	Port                    int           `env:"PORT,default=3000" validate:"min=0,max=65535"`
	LogLevel                string        `env:"LOG_LEVEL,default=INFO" validate:"required"`
	TranscriptBackend       string        `env:"TRANSCRIPT_BACKEND,default=file" validate:"oneof=file badger"`
	TranscriptDir           string        `env:"TRANSCRIPT_DIR,default=transcripts" validate:"required_if=TranscriptBackend file"`
	BadgerFilepath          string        `env:"BADGER_FILEPATH,default=data/transcripts" validate:"required_if=TranscriptBackend badger"`
	SinkBufferSize          int           `env:"SINK_BUFFER_SIZE,default=64" validate:"gt=0"`
	WriteTimeout            time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gte=0"`
	MaxLineLength           int           `env:"MAX_LINE_LENGTH,default=65536" validate:"gt=0"`
	DuplicateUsernamePolicy string        `env:"DUPLICATE_USERNAME_POLICY,default=overwrite" validate:"oneof=overwrite evict"`
	CensoredWords           string        `env:"CENSORED_WORDS"`
	CensorCharacter         string        `env:"CENSOR_CHARACTER,default=*"`
	StatsInterval           time.Duration `env:"STATS_INTERVAL,default=30s" validate:"gt=0"`
	RestartInterval         time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
}

// Validate checks the struct tags, then the fields tags can't express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	if _, err := c.CharacterRune(); err != nil {
		return err
	}
	return nil
}

// CharacterRune returns the single rune used to mask censored words.
func (c Config) CharacterRune() (rune, error) {
	if utf8.RuneCountInString(c.CensorCharacter) != 1 {
		return 0, fmt.Errorf("%w: %q", errors.ErrInvalidCensorChar, c.CensorCharacter)
	}
	r, _ := utf8.DecodeRuneInString(c.CensorCharacter)
	return r, nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) Policy() domain.DuplicatePolicy {
	return domain.DuplicatePolicy(c.DuplicateUsernamePolicy)
}
