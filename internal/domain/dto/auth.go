package dto

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
)

// LoginSelector: строка роли или номер муниципалитета, число принимается и без кавычек.
type LoginSelector string

func (s *LoginSelector) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := sonic.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = LoginSelector(str)
		return nil
	}
	if _, err := strconv.ParseInt(string(data), 10, 64); err != nil {
		return fmt.Errorf("selector must be a string or an integer municipality id, got %s", data)
	}
	*s = LoginSelector(data)
	return nil
}

type LoginRequest struct {
	Selector LoginSelector `json:"selector" validate:"required"`
	Password string        `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}
