package models

// Placeholder texts used when the model omits or mangles a field
const (
	PlaceholderTitle                = "عنوان الدرس"
	PlaceholderGradeLevel           = "الصف الدراسي"
	PlaceholderEstimatedTime        = "45 دقيقة"
	PlaceholderObjective            = "تعذر توليد الأهداف التعليمية."
	PlaceholderHook                 = "لا يوجد نشاط تمهيدي."
	PlaceholderContentTitle         = "تعذر قراءة محتوى الدرس"
	PlaceholderContentDiagnostic    = "لم يرجع نموذج الذكاء الاصطناعي محتوى صالحاً لهذا القسم. يرجى إعادة المحاولة."
	PlaceholderContentDetails       = "لا توجد تفاصيل."
	PlaceholderIndividualActivity   = "لا يوجد نشاط فردي."
	PlaceholderGroupActivity        = "لا يوجد نشاط جماعي."
	PlaceholderGifted               = "لا يوجد نشاط إضافي."
	PlaceholderLearningDifficulties = "لا يوجد نشاط داعم."
	PlaceholderResourceName         = "مصدر بدون اسم"
	PlaceholderResourceDescription  = "لا يوجد وصف."
	PlaceholderResourceCategory     = "عام"
	PlaceholderEvaluation           = "لا يوجد."
	PlaceholderQuestionAnswer       = "غير متوفر"
)

// DefaultLessonPlanDocument returns a fresh all-placeholder document. It is the result of a
// total parse failure and the source of every per-field default.
func DefaultLessonPlanDocument() LessonPlanDocument {
	return LessonPlanDocument{
		Title:         PlaceholderTitle,
		GradeLevel:    PlaceholderGradeLevel,
		EstimatedTime: PlaceholderEstimatedTime,
		Objectives:    []string{PlaceholderObjective},
		Hook:          PlaceholderHook,
		ContentElements: []ContentElement{
			{Title: PlaceholderContentTitle, Details: PlaceholderContentDiagnostic},
		},
		Activities: Activities{
			Individual: PlaceholderIndividualActivity,
			Group:      PlaceholderGroupActivity,
		},
		Differentiation: Differentiation{
			Gifted:               PlaceholderGifted,
			LearningDifficulties: PlaceholderLearningDifficulties,
		},
		Resources:           []ResourceItem{},
		AdditionalResources: []ResourceItem{},
		Evaluation: Evaluation{
			Formative: PlaceholderEvaluation,
			Authentic: PlaceholderEvaluation,
			Summative: PlaceholderEvaluation,
			Quiz:      Quiz{Questions: []QuizQuestion{}},
		},
	}
}
