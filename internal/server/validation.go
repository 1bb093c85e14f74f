package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	maxNameLength  = 20
	roomCodeLength = 6
)

var validatorOnce sync.Once

// messageValidator checks websocket payloads. REST bodies go through gin's
// own validator, which registerValidators extends with the same tags.
var messageValidator = newMessageValidator()

func newMessageValidator() *validator.Validate {
	v := validator.New()
	registerCustomValidations(v)
	return v
}

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		registerCustomValidations(engine)
	})
}

func registerCustomValidations(v *validator.Validate) {
	_ = v.RegisterValidation("name", func(fl validator.FieldLevel) bool {
		_, err := validateName(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("roomcode", func(fl validator.FieldLevel) bool {
		return isRoomCode(fl.Field().String())
	})
}

var messageErrors = bindMessages{
	"RoomCode": {
		"required": "Room code is required",
		"roomcode": "Room codes are 6 letters or digits",
	},
	"PlayerName": {
		"required": "Name is required",
		"name":     fmt.Sprintf("Names must be 1-%d letters, digits or punctuation", maxNameLength),
	},
	"Avatar": {
		"max": "Avatar must be a short glyph",
	},
	"Color": {
		"hexcolor": "Color must be a hex color like #3B82F6",
	},
	"PlayerID": {
		"required": "Player id is required",
	},
	"Expression": {
		"max": "Expression is too long",
	},
	"Round": {
		"min": "Round must be positive",
	},
}

var createRoomErrors = bindMessages{
	"MaxPlayers": {
		"oneof": "maxPlayers must be 2 or 4",
	},
}

func validateName(name string) (string, error) {
	return validateText("name", name, maxNameLength)
}

func validateText(label, text string, maxLen int) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	if len(trimmed) > maxLen {
		return "", fmt.Errorf("%s must be %d characters or fewer", label, maxLen)
	}
	if !isSafeText(trimmed) {
		return "", errors.New(label + " contains unsupported characters")
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

func isSafeText(text string) bool {
	for _, r := range text {
		if r > 127 {
			return false
		}
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		switch r {
		case ' ', '-', '_', '\'', '.', '!', '?':
			continue
		default:
			return false
		}
	}
	return true
}

// isRoomCode accepts codes in either case; the engine upper-cases them.
func isRoomCode(code string) bool {
	code = strings.TrimSpace(code)
	if len(code) != roomCodeLength {
		return false
	}
	for _, r := range code {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
