package form

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrFieldAlreadySet is returned when a buffered answer would be overwritten.
	ErrFieldAlreadySet = errors.New("form: field already set")
	// ErrFieldType is returned when a value does not match the field's type.
	ErrFieldType = errors.New("form: value type does not match field")
	// ErrFieldMissing is returned when a profile is built from an incomplete buffer.
	ErrFieldMissing = errors.New("form: field missing")
)

// Buffer holds the answers of an in-progress questionnaire. Fields are
// written once, in order, and never overwritten.
type Buffer struct {
	Name      *string
	Age       *int
	Gender    *Gender
	Photo     *PhotoRef
	Education *Education
	WishNews  *bool
}

// Has reports whether the field has been recorded.
func (b *Buffer) Has(f Field) bool {
	switch f {
	case FieldName:
		return b.Name != nil
	case FieldAge:
		return b.Age != nil
	case FieldGender:
		return b.Gender != nil
	case FieldPhoto:
		return b.Photo != nil
	case FieldEducation:
		return b.Education != nil
	case FieldWishNews:
		return b.WishNews != nil
	}
	return false
}

// Set records value for field. The value must have the field's Go type.
func (b *Buffer) Set(f Field, value any) error {
	if b.Has(f) {
		return fmt.Errorf("%w: %s", ErrFieldAlreadySet, f)
	}
	ok := false
	switch f {
	case FieldName:
		var v string
		if v, ok = value.(string); ok {
			b.Name = &v
		}
	case FieldAge:
		var v int
		if v, ok = value.(int); ok {
			b.Age = &v
		}
	case FieldGender:
		var v Gender
		if v, ok = value.(Gender); ok {
			b.Gender = &v
		}
	case FieldPhoto:
		var v PhotoRef
		if v, ok = value.(PhotoRef); ok {
			b.Photo = &v
		}
	case FieldEducation:
		var v Education
		if v, ok = value.(Education); ok {
			b.Education = &v
		}
	case FieldWishNews:
		var v bool
		if v, ok = value.(bool); ok {
			b.WishNews = &v
		}
	}
	if !ok {
		return fmt.Errorf("%w: %s got %T", ErrFieldType, f, value)
	}
	return nil
}

// Unset forgets a recorded answer.
func (b *Buffer) Unset(f Field) {
	switch f {
	case FieldName:
		b.Name = nil
	case FieldAge:
		b.Age = nil
	case FieldGender:
		b.Gender = nil
	case FieldPhoto:
		b.Photo = nil
	case FieldEducation:
		b.Education = nil
	case FieldWishNews:
		b.WishNews = nil
	}
}

// Missing returns the unrecorded fields in questionnaire order.
func (b *Buffer) Missing() []Field {
	var out []Field
	for _, f := range Fields {
		if !b.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Profile converts a complete buffer into a finalized profile.
func (b *Buffer) Profile(user UserID, completedAt time.Time) (Profile, error) {
	if missing := b.Missing(); len(missing) > 0 {
		return Profile{}, fmt.Errorf("%w: %v", ErrFieldMissing, missing)
	}
	return Profile{
		UserID:      user,
		Name:        *b.Name,
		Age:         *b.Age,
		Gender:      *b.Gender,
		Photo:       *b.Photo,
		Education:   *b.Education,
		WishNews:    *b.WishNews,
		CompletedAt: completedAt,
	}, nil
}

// Profile is a finalized questionnaire. A new successful run replaces it.
type Profile struct {
	UserID      UserID
	Name        string
	Age         int
	Gender      Gender
	Photo       PhotoRef
	Education   Education
	WishNews    bool
	CompletedAt time.Time
}
