package test

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// ValidateErrMessage checks the message of a JSON error response.
func ValidateErrMessage(expectedMsg string, body *bytes.Buffer) error {
	if expectedMsg == "" {
		return nil
	}

	var errResponse map[string]map[string]string
	err := json.NewDecoder(body).Decode(&errResponse)
	if err != nil {
		return err
	}

	if errResponse["error"]["message"] != expectedMsg {
		return errors.Errorf("incorrect error response, want '%s' got '%s'",
			expectedMsg, errResponse["error"]["message"])
	}

	return nil
}
