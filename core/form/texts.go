package form

import "reflect"

// Texts holds every user-visible string of the questionnaire.
// Zero fields are filled from DefaultTexts by Merge.
type Texts struct {
	Welcome         string `yaml:"welcome"`
	NotUnderstood   string `yaml:"not_understood"`
	Cancelled       string `yaml:"cancelled"`
	AskName         string `yaml:"ask_name"`
	RejectName      string `yaml:"reject_name"`
	AskAge          string `yaml:"ask_age"`
	RejectAge       string `yaml:"reject_age"`
	AskGender       string `yaml:"ask_gender"`
	RejectGender    string `yaml:"reject_gender"`
	AskPhoto        string `yaml:"ask_photo"`
	RejectPhoto     string `yaml:"reject_photo"`
	AskEducation    string `yaml:"ask_education"`
	RejectEducation string `yaml:"reject_education"`
	AskNews         string `yaml:"ask_news"`
	RejectNews      string `yaml:"reject_news"`
	Saved           string `yaml:"saved"`
	ShowDataHint    string `yaml:"show_data_hint"`
	NoProfile       string `yaml:"no_profile"`
	Failure         string `yaml:"failure"`

	LabelMale      string `yaml:"label_male"`
	LabelFemale    string `yaml:"label_female"`
	LabelUndefined string `yaml:"label_undefined"`
	LabelSecondary string `yaml:"label_secondary"`
	LabelHigher    string `yaml:"label_higher"`
	LabelNoEdu     string `yaml:"label_no_edu"`
	LabelYes       string `yaml:"label_yes"`
	LabelNo        string `yaml:"label_no"`

	CaptionName      string `yaml:"caption_name"`
	CaptionAge       string `yaml:"caption_age"`
	CaptionGender    string `yaml:"caption_gender"`
	CaptionEducation string `yaml:"caption_education"`
	CaptionWishNews  string `yaml:"caption_wish_news"`
}

const cancelHint = "\n\nIf you want to stop filling in the form, send /cancel"

// DefaultTexts returns the built-in English texts.
func DefaultTexts() Texts {
	return Texts{
		Welcome:         "This bot demonstrates a finite-state machine\n\nTo fill in the form, send /fillform",
		NotUnderstood:   "Sorry, I don't understand you",
		Cancelled:       "You left the form\n\nTo fill in the form again, send /fillform",
		AskName:         "Please enter your name",
		RejectName:      "That does not look like a name\n\nPlease enter your name" + cancelHint,
		AskAge:          "Thank you!\n\nNow enter your age",
		RejectAge:       "Age must be a whole number from 4 to 120\n\nTry again" + cancelHint,
		AskGender:       "Thank you!\n\nSelect your gender",
		RejectGender:    "Please use the buttons to select your gender" + cancelHint,
		AskPhoto:        "Thank you! Now please upload your photo",
		RejectPhoto:     "Please send your photo at this step" + cancelHint,
		AskEducation:    "Thank you!\n\nSelect your education",
		RejectEducation: "Please use the buttons to select your education" + cancelHint,
		AskNews:         "Thank you!\n\nOne last step.\nWould you like to receive news?",
		RejectNews:      "Please use the buttons!" + cancelHint,
		Saved:           "Thank you! Your data has been saved!\n\nYou left the form",
		ShowDataHint:    "To see your form data, send /showdata",
		NoProfile:       "You have not filled in the form yet. To start, send /fillform",
		Failure:         "Something went wrong on our side. Please try again",

		LabelMale:      "Male ♂",
		LabelFemale:    "Female ♀",
		LabelUndefined: "🤷 Not sure yet",
		LabelSecondary: "Secondary",
		LabelHigher:    "Higher",
		LabelNoEdu:     "🤷 None",
		LabelYes:       "Yes",
		LabelNo:        "No, thanks",

		CaptionName:      "Name",
		CaptionAge:       "Age",
		CaptionGender:    "Gender",
		CaptionEducation: "Education",
		CaptionWishNews:  "Receive news",
	}
}

// Merge returns t with every empty string replaced by the default.
func (t Texts) Merge() Texts {
	out := DefaultTexts()
	src := reflect.ValueOf(t)
	dst := reflect.ValueOf(&out).Elem()
	for i := 0; i < src.NumField(); i++ {
		if s := src.Field(i).String(); s != "" {
			dst.Field(i).SetString(s)
		}
	}
	return out
}
