package contextutils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Locale represents a language locale (e.g., "ar", "en")
type Locale string

const (
	// LocaleArabic is the default locale of the user-facing pages
	LocaleArabic Locale = "ar"
	// LocaleEnglish represents English language
	LocaleEnglish Locale = "en"
)

// LocalizedMessages contains localized error messages for different locales
type LocalizedMessages struct {
	messages map[ErrorCode]map[Locale]string
}

// NewLocalizedMessages creates a new instance of localized messages
func NewLocalizedMessages() *LocalizedMessages {
	return &LocalizedMessages{
		messages: make(map[ErrorCode]map[Locale]string),
	}
}

// AddMessage adds a localized message for a specific error code and locale
func (lm *LocalizedMessages) AddMessage(code ErrorCode, locale Locale, message string) {
	if lm.messages[code] == nil {
		lm.messages[code] = make(map[Locale]string)
	}
	lm.messages[code][locale] = message
}

// GetMessage returns the localized message for an error code and locale.
// Lookup order: requested locale, English, built-in default.
func (lm *LocalizedMessages) GetMessage(code ErrorCode, locale Locale) string {
	if localeMessages, exists := lm.messages[code]; exists {
		if message, exists := localeMessages[locale]; exists {
			return message
		}
		if message, exists := localeMessages[LocaleEnglish]; exists {
			return message
		}
	}
	return getDefaultMessage(code)
}

// GetMessageWithDetails returns a localized message with additional details
func (lm *LocalizedMessages) GetMessageWithDetails(code ErrorCode, locale Locale, details string) string {
	message := lm.GetMessage(code, locale)
	if details != "" {
		return fmt.Sprintf("%s: %s", message, details)
	}
	return message
}

// getDefaultMessage returns a default English message for error codes
func getDefaultMessage(code ErrorCode) string {
	switch code {
	case ErrorCodeInvalidInput:
		return "Invalid input"
	case ErrorCodeMissingRequired:
		return "Missing required field"
	case ErrorCodeInvalidFormat:
		return "Invalid format"
	case ErrorCodeValidationFailed:
		return "Validation failed"
	case ErrorCodeRecordNotFound:
		return "No lesson plan has been generated yet"
	case ErrorCodeServiceUnavailable:
		return "Service temporarily unavailable"
	case ErrorCodeTimeout:
		return "Request timeout"
	case ErrorCodeInternalError:
		return "Internal server error"
	case ErrorCodeConfiguration:
		return "The AI credential is missing or invalid"
	case ErrorCodeGenerationUnavailable:
		return "We could not generate the lesson plan. Please check your connection and try again."
	case ErrorCodeGenerationInProgress:
		return "A lesson plan is already being generated"
	case ErrorCodeGenerationCancelled:
		return "Lesson plan generation was cancelled"
	case ErrorCodeMalformedResponse:
		return "The generated lesson plan was incomplete"
	case ErrorCodeAIRequestFailed:
		return "AI request failed"
	case ErrorCodeAIResponseInvalid:
		return "AI response invalid"
	case ErrorCodeAIContentBlocked:
		return "AI response blocked"
	case ErrorCodeAIConfigInvalid:
		return "AI configuration invalid"
	default:
		return "An error occurred"
	}
}

// LoadMessagesFromJSON loads localized messages from a JSON structure
// shaped as {"CODE": {"locale": "message"}}.
func (lm *LocalizedMessages) LoadMessagesFromJSON(jsonData string) error {
	var data map[string]map[string]string
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return WrapError(err, "failed to parse localization JSON")
	}

	for codeStr, localeMessages := range data {
		code := ErrorCode(codeStr)
		for localeStr, message := range localeMessages {
			lm.AddMessage(code, Locale(localeStr), message)
		}
	}

	return nil
}

// ParseLocale parses a locale string (e.g., "ar-EG", "en-US") and returns the language part.
// An empty string yields Arabic, the language of the generated documents.
func ParseLocale(localeStr string) Locale {
	localeStr = strings.TrimSpace(localeStr)
	if i := strings.IndexAny(localeStr, ",;"); i >= 0 {
		localeStr = localeStr[:i]
	}
	parts := strings.Split(localeStr, "-")
	if len(parts) > 0 && parts[0] != "" {
		return Locale(strings.ToLower(parts[0]))
	}
	return LocaleArabic
}

var globalLocalizedMessages = NewLocalizedMessages()

func init() {
	ar := map[ErrorCode]string{
		ErrorCodeInvalidInput:          "البيانات المدخلة غير صالحة",
		ErrorCodeMissingRequired:       "يرجى إدخال موضوع الدرس",
		ErrorCodeValidationFailed:      "تعذر التحقق من البيانات المدخلة",
		ErrorCodeRecordNotFound:        "لم يتم إنشاء خطة درس بعد",
		ErrorCodeServiceUnavailable:    "الخدمة غير متاحة مؤقتاً",
		ErrorCodeTimeout:               "انتهت مهلة الطلب",
		ErrorCodeInternalError:         "حدث خطأ داخلي في الخادم",
		ErrorCodeConfiguration:         "مفتاح الوصول إلى خدمة الذكاء الاصطناعي غير مضبوط. يرجى التواصل مع المسؤول.",
		ErrorCodeGenerationUnavailable: "لم نتمكن من إنشاء خطة الدرس. يرجى التحقق من الاتصال بالإنترنت والمحاولة مرة أخرى.",
		ErrorCodeGenerationInProgress:  "جاري إنشاء خطة درس بالفعل، يرجى الانتظار.",
		ErrorCodeGenerationCancelled:   "تم إلغاء إنشاء خطة الدرس.",
		ErrorCodeMalformedResponse:     "وصلت خطة الدرس غير مكتملة، وتم استكمال بعض الأقسام بقيم افتراضية.",
	}
	for code, message := range ar {
		globalLocalizedMessages.AddMessage(code, LocaleArabic, message)
	}
}

// GetLocalizedMessage returns a localized error message using the global instance
func GetLocalizedMessage(code ErrorCode, locale Locale) string {
	return globalLocalizedMessages.GetMessage(code, locale)
}

// GetLocalizedMessageWithDetails returns a localized error message with details
func GetLocalizedMessageWithDetails(code ErrorCode, locale Locale, details string) string {
	return globalLocalizedMessages.GetMessageWithDetails(code, locale, details)
}
