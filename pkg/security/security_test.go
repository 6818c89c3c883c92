package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhoneNumber_Valid(t *testing.T) {
	validNumbers := []string{
		"+441164971883",
		"441164971883",
		"+1 (555) 010-0199",
		"+91 98765 43210",
		" +15550100199 ",
		"07700900123", // national format, routed by the gateway
		"0044 116 497 1883",
	}

	for _, phone := range validNumbers {
		err := ValidatePhoneNumber(phone)
		assert.NoError(t, err, "Expected %q to be valid", phone)
	}
}

func TestValidatePhoneNumber_Invalid(t *testing.T) {
	invalidNumbers := []string{
		"",                  // empty
		"12345",             // too short
		"+1234567890123456", // too long
		"call me",           // letters
		"+44 116#497",       // special char
	}

	for _, phone := range invalidNumbers {
		err := ValidatePhoneNumber(phone)
		assert.Error(t, err, "Expected %q to be invalid", phone)
	}
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "*********1883", MaskPhone("+441164971883"))
	assert.Equal(t, "***", MaskPhone("123"))
	assert.Equal(t, "", MaskPhone(""))
	assert.Equal(t, "****", MaskPhone(" 1234 "))
}

func TestSanitizeErrorMessage_Empty(t *testing.T) {
	assert.Equal(t, "", SanitizeErrorMessage(""))
}

func TestSanitizeErrorMessage_RemovesControlChars(t *testing.T) {
	input := "error\x00with\x01control\x7fchars"
	result := SanitizeErrorMessage(input)
	assert.Equal(t, "errorwithcontrolchars", result)
}

func TestSanitizeErrorMessage_PreservesNewlines(t *testing.T) {
	input := "line1\nline2\r\nline3\ttab"
	result := SanitizeErrorMessage(input)
	assert.Equal(t, input, result)
}

func TestSanitizeErrorMessage_Truncates(t *testing.T) {
	input := strings.Repeat("x", MaxErrorMessageLength+100)
	result := SanitizeErrorMessage(input)
	assert.Equal(t, MaxErrorMessageLength, len([]rune(result)))
	assert.True(t, strings.HasSuffix(result, "..."))
}

func TestSanitizeContactName_Truncates(t *testing.T) {
	result := SanitizeContactName(strings.Repeat("é", MaxContactNameLength+1))
	assert.Equal(t, MaxContactNameLength, len([]rune(result)))
}

func TestTokenEqual(t *testing.T) {
	assert.True(t, TokenEqual("s3cret", "s3cret"))
	assert.False(t, TokenEqual("s3cret", "other"))
	assert.False(t, TokenEqual("", ""), "empty configured token never matches")
	assert.False(t, TokenEqual("s3cre", "s3cret"))
}

func TestClampListLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, ClampListLimit(0))
	assert.Equal(t, DefaultListLimit, ClampListLimit(-5))
	assert.Equal(t, 50, ClampListLimit(50))
	assert.Equal(t, MaxListLimit, ClampListLimit(MaxListLimit+1))
}
