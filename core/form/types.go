// Package form defines the profile questionnaire: its states, fields,
// inbound events, outbound effects and the linear transition table.
// Nothing here performs I/O, so the machine can be exercised without a transport.
package form

// UserID identifies a remote user; it is the only key into the session store.
type UserID int64

// State identifies a finite-state-machine step of the questionnaire.
type State string

const (
	// StateIdle indicates there is no active questionnaire for the user.
	StateIdle State = "idle"
	// StateAwaitingName waits for an alphabetic name.
	StateAwaitingName State = "awaiting_name"
	// StateAwaitingAge waits for an integer age.
	StateAwaitingAge State = "awaiting_age"
	// StateAwaitingGender waits for a gender button press.
	StateAwaitingGender State = "awaiting_gender"
	// StateAwaitingPhoto waits for a photo upload.
	StateAwaitingPhoto State = "awaiting_photo"
	// StateAwaitingEducation waits for an education button press.
	StateAwaitingEducation State = "awaiting_education"
	// StateAwaitingNewsOptIn waits for the news subscription choice.
	StateAwaitingNewsOptIn State = "awaiting_news_opt_in"
	// StateCompleted is reached after the profile has been stored.
	StateCompleted State = "completed"
)

// AwaitingStates lists the input states in questionnaire order.
var AwaitingStates = []State{
	StateAwaitingName,
	StateAwaitingAge,
	StateAwaitingGender,
	StateAwaitingPhoto,
	StateAwaitingEducation,
	StateAwaitingNewsOptIn,
}

// Awaiting reports whether the state expects questionnaire input.
func (s State) Awaiting() bool {
	for _, st := range AwaitingStates {
		if st == s {
			return true
		}
	}
	return false
}

// Field names a questionnaire answer. Every forward edge of the machine is
// named after the field validated in its source state.
type Field string

const (
	FieldName      Field = "name"
	FieldAge       Field = "age"
	FieldGender    Field = "gender"
	FieldPhoto     Field = "photo"
	FieldEducation Field = "education"
	FieldWishNews  Field = "wish_news"
)

// Fields lists all answers in questionnaire order.
var Fields = []Field{FieldName, FieldAge, FieldGender, FieldPhoto, FieldEducation, FieldWishNews}

// Gender is the answer to the gender question.
type Gender string

const (
	GenderMale      Gender = "male"
	GenderFemale    Gender = "female"
	GenderUndefined Gender = "undefined"
)

// Education is the answer to the education question.
type Education string

const (
	EducationSecondary Education = "secondary"
	EducationHigher    Education = "higher"
	EducationNone      Education = "none"
)

// PhotoRef points at a photo stored by the messaging channel.
// UniqueID is content-addressed and stable across bots; ID is what the
// channel accepts when re-sending the photo.
type PhotoRef struct {
	ID       string
	UniqueID string
}

// Empty reports whether the reference carries no file id.
func (p PhotoRef) Empty() bool {
	return p.ID == ""
}
