package task

// Voice languages understood by the guidance catalog.
const (
	LangEnglish = "en"
	LangArabic  = "ar"
)

// phrases maps guidance keys to spoken text per language. Screen messages
// always use the English text; VoiceText follows the evaluator's language,
// falling back to English for languages the catalog does not carry.
var phrases = map[string]map[string]string{
	LangEnglish: {
		"common.step_into_view": "Please step back so I can see all of you",
		"common.try_again":      "Almost! Let's try that again",

		"arm_raise.prompt":  "Raise both arms up high over your head",
		"arm_raise.hold":    "Hold your arms up high",
		"arm_raise.back":    "Keep your back nice and straight",
		"arm_raise.both":    "Lift both arms together",
		"arm_raise.success": "Great job, your arms went so high",

		"one_leg.prompt":  "Stand on one leg like a flamingo",
		"one_leg.hold":    "Keep holding, you are doing great",
		"one_leg.steady":  "Try to stay nice and steady",
		"one_leg.again":   "Lift your foot up again",
		"one_leg.success": "Amazing balance",

		"walk.prompt":  "Walk towards me one step at a time",
		"walk.keep":    "Keep walking, you are doing great",
		"walk.steady":  "Walk slowly and stay steady",
		"walk.success": "Wonderful walking",

		"jump.prompt":  "Bend your knees and jump as high as you can",
		"jump.now":     "Now jump",
		"jump.higher":  "Almost! Jump a little higher",
		"jump.success": "Wow, what a big jump",

		"tiptoe.prompt":  "Stand on your tip toes and reach for the sky",
		"tiptoe.arms":    "Now stretch your arms up high",
		"tiptoe.heels":   "Lift your heels off the ground",
		"tiptoe.hold":    "Keep holding, almost there",
		"tiptoe.drop":    "Keep those heels up",
		"tiptoe.success": "Fantastic, you reached the sky",

		"squat.prompt":  "Bend your knees and squat down like a frog",
		"squat.lower":   "Go down a little lower",
		"squat.knees":   "Keep your knees over your toes",
		"squat.heels":   "Keep your heels on the floor",
		"squat.hold":    "Hold it right there",
		"squat.success": "Super squat, well done",
	},
	LangArabic: {
		"common.step_into_view": "ابتعد قليلا حتى أراك كاملا",
		"common.try_again":      "تقريبا! لنحاول مرة أخرى",

		"arm_raise.prompt":  "ارفع ذراعيك عاليا فوق رأسك",
		"arm_raise.hold":    "ابق ذراعيك مرفوعتين",
		"arm_raise.back":    "حافظ على ظهرك مستقيما",
		"arm_raise.both":    "ارفع الذراعين معا",
		"arm_raise.success": "أحسنت، ذراعاك عاليتان جدا",

		"one_leg.prompt":  "قف على رجل واحدة مثل طائر الفلامنجو",
		"one_leg.hold":    "استمر، أنت رائع",
		"one_leg.steady":  "حاول أن تبقى ثابتا",
		"one_leg.again":   "ارفع قدمك مرة أخرى",
		"one_leg.success": "توازن مذهل",

		"walk.prompt":  "امش نحوي خطوة خطوة",
		"walk.keep":    "استمر في المشي، أنت رائع",
		"walk.steady":  "امش ببطء وابق ثابتا",
		"walk.success": "مشي رائع",

		"jump.prompt":  "اثن ركبتيك واقفز أعلى ما يمكنك",
		"jump.now":     "اقفز الآن",
		"jump.higher":  "تقريبا! اقفز أعلى قليلا",
		"jump.success": "يا لها من قفزة كبيرة",

		"tiptoe.prompt":  "قف على أطراف أصابعك ومد يديك نحو السماء",
		"tiptoe.arms":    "ارفع ذراعيك عاليا الآن",
		"tiptoe.heels":   "ارفع كعبيك عن الأرض",
		"tiptoe.hold":    "استمر، اقتربنا",
		"tiptoe.drop":    "ابق كعبيك مرفوعين",
		"tiptoe.success": "رائع، لمست السماء",

		"squat.prompt":  "اثن ركبتيك واجلس مثل الضفدع",
		"squat.lower":   "انزل قليلا أكثر",
		"squat.knees":   "حافظ على ركبتيك فوق أصابع قدميك",
		"squat.heels":   "ابق كعبيك على الأرض",
		"squat.hold":    "اثبت مكانك",
		"squat.success": "جلسة رائعة، أحسنت",
	},
}

// phrase returns the catalog text for key in lang, falling back to English
// and then to an empty string.
func phrase(lang, key string) string {
	if m, ok := phrases[lang]; ok {
		if p, ok := m[key]; ok {
			return p
		}
	}
	if p, ok := phrases[LangEnglish][key]; ok {
		return p
	}
	return ""
}

// speaker tracks which guidance key was last spoken so the same phrase is
// not repeated on every frame. Not goroutine-safe, like the evaluators that
// embed it.
type speaker struct {
	lang    string
	lastKey string
}

func newSpeaker(lang string) speaker {
	if _, ok := phrases[lang]; !ok {
		lang = LangEnglish
	}
	return speaker{lang: lang}
}

// say returns the localized phrase for key the first time the key is
// spoken, and an empty string while the key is unchanged.
func (s *speaker) say(key string) string {
	if key == s.lastKey {
		return ""
	}
	s.lastKey = key
	return phrase(s.lang, key)
}

// reset forgets the last spoken key.
func (s *speaker) reset() {
	s.lastKey = ""
}
