package contextutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalizedMessages_AddMessage_GetMessage(t *testing.T) {
	lm := NewLocalizedMessages()

	lm.AddMessage(ErrorCodeInvalidInput, LocaleEnglish, "Invalid input")
	lm.AddMessage(ErrorCodeInvalidInput, LocaleArabic, "البيانات المدخلة غير صالحة")

	assert.Equal(t, "Invalid input", lm.GetMessage(ErrorCodeInvalidInput, LocaleEnglish))
	assert.Equal(t, "البيانات المدخلة غير صالحة", lm.GetMessage(ErrorCodeInvalidInput, LocaleArabic))

	// Unknown locale falls back to English
	assert.Equal(t, "Invalid input", lm.GetMessage(ErrorCodeInvalidInput, Locale("fr")))

	assert.Equal(t, "An error occurred", lm.GetMessage(ErrorCode("UNKNOWN_ERROR"), LocaleEnglish))
}

func TestLocalizedMessages_GetMessageWithDetails(t *testing.T) {
	lm := NewLocalizedMessages()
	lm.AddMessage(ErrorCodeValidationFailed, LocaleEnglish, "Validation failed")

	assert.Equal(t, "Validation failed: gradeLevel", lm.GetMessageWithDetails(ErrorCodeValidationFailed, LocaleEnglish, "gradeLevel"))
	assert.Equal(t, "Validation failed", lm.GetMessageWithDetails(ErrorCodeValidationFailed, LocaleEnglish, ""))
}

func TestLocalizedMessages_LoadMessagesFromJSON(t *testing.T) {
	lm := NewLocalizedMessages()
	err := lm.LoadMessagesFromJSON(`{
		"GENERATION_UNAVAILABLE": {"en": "Try again", "ar": "حاول مرة أخرى"}
	}`)
	require.NoError(t, err)

	assert.Equal(t, "حاول مرة أخرى", lm.GetMessage(ErrorCodeGenerationUnavailable, LocaleArabic))
	assert.Equal(t, "Try again", lm.GetMessage(ErrorCodeGenerationUnavailable, LocaleEnglish))

	assert.Error(t, lm.LoadMessagesFromJSON("{not json"))
}

func TestParseLocale(t *testing.T) {
	tests := map[string]Locale{
		"ar-EG":                 LocaleArabic,
		"en-US":                 LocaleEnglish,
		"EN":                    LocaleEnglish,
		"":                      LocaleArabic,
		"en-GB,en;q=0.9,ar;q=1": LocaleEnglish,
	}
	for input, expected := range tests {
		assert.Equal(t, expected, ParseLocale(input), "input %q", input)
	}
}

func TestGlobalMessages_ArabicDefaults(t *testing.T) {
	msg := GetLocalizedMessage(ErrorCodeGenerationUnavailable, LocaleArabic)
	assert.Contains(t, msg, "لم نتمكن من إنشاء خطة الدرس")

	// English has no registered message and uses the built-in default
	assert.Equal(t, "Lesson plan generation was cancelled", GetLocalizedMessage(ErrorCodeGenerationCancelled, LocaleEnglish))
}
