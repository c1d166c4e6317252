package utils

import (
	"fmt"
	"os"
	"strconv"
)

type Env interface {
	uint | bool | string
}

// GetEnv reads key from the environment, falling back to defaultVal when
// unset. It panics on a missing required variable or an unparsable value,
// since these are startup-time configuration mistakes.
func GetEnv[T Env](key string, defaultVal string, required bool) T {
	var retVal T

	val, ok := os.LookupEnv(key)
	if !ok {
		if required {
			panic(fmt.Sprintf("env %s is required", key))
		}

		val = defaultVal
	}

	switch ptr := any(&retVal).(type) {
	case *uint:
		parsedVal, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			panic(fmt.Sprintf("error: parsing env %s=%s", key, val))
		}

		*ptr = uint(parsedVal)
	case *bool:
		parsedVal, err := strconv.ParseBool(val)
		if err != nil {
			panic(fmt.Sprintf("error: parsing env %s=%s", key, val))
		}

		*ptr = parsedVal
	case *string:
		*ptr = val
	}

	return retVal
}

// UserHomeDirPath returns (creating if necessary) a tftp subdirectory of the
// caller's home, used as the default file_store root when TFTP_BASE_DIR is
// not set.
func UserHomeDirPath() string {
	p, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("error while getting user home dir: %w", err))
	}

	base := fmt.Sprintf("%s/tftp", p)

	if _, err := os.Stat(base); err != nil {
		if os.IsNotExist(err) {
			if err := os.Mkdir(base, 0o750); err != nil {
				panic(fmt.Errorf("error while creating tftp base dir: %w", err))
			}
		} else {
			panic(fmt.Errorf("error checking if %s exists: %w", base, err))
		}
	}

	return base
}
