/*
Package tablemap – field type catalog.

The names match the storage service's field type identifiers.
*/
package tablemap

import "fmt"

// FieldType is one of the fixed catalog of storage field types.
type FieldType string

const (
	SingleLineText        FieldType = "singleLineText"
	Email                 FieldType = "email"
	URL                   FieldType = "url"
	MultilineText         FieldType = "multilineText"
	Number                FieldType = "number"
	Percent               FieldType = "percent"
	Currency              FieldType = "currency"
	SingleSelect          FieldType = "singleSelect"
	MultipleSelects       FieldType = "multipleSelects"
	SingleCollaborator    FieldType = "singleCollaborator"
	MultipleCollaborators FieldType = "multipleCollaborators"
	MultipleRecordLinks   FieldType = "multipleRecordLinks"
	Date                  FieldType = "date"
	DateTime              FieldType = "dateTime"
	PhoneNumber           FieldType = "phoneNumber"
	MultipleAttachments   FieldType = "multipleAttachments"
	Checkbox              FieldType = "checkbox"
	Formula               FieldType = "formula"
	CreatedTime           FieldType = "createdTime"
	Rollup                FieldType = "rollup"
	Count                 FieldType = "count"
	MultipleLookupValues  FieldType = "multipleLookupValues"
	AutoNumber            FieldType = "autoNumber"
	Barcode               FieldType = "barcode"
	Rating                FieldType = "rating"
	RichText              FieldType = "richText"
	Duration              FieldType = "duration"
	LastModifiedTime      FieldType = "lastModifiedTime"
	CreatedBy             FieldType = "createdBy"
	LastModifiedBy        FieldType = "lastModifiedBy"
	Button                FieldType = "button"
)

// fieldClass groups catalog types that share one coercion rule.
type fieldClass int

const (
	classUnwritable fieldClass = iota // catalog type without a write rule
	classText
	classNumber
	classCheckbox
	classDate
	classDateTime
	classRecordLinks
	classSingleSelect
	classMultiSelect
	classAttachments
	classReadOnly // system field, never written
)

// fieldClasses is the closed catalog. A type absent from this map is not a
// field type at all.
var fieldClasses = map[FieldType]fieldClass{
	SingleLineText:        classText,
	Email:                 classText,
	URL:                   classText,
	MultilineText:         classText,
	PhoneNumber:           classText,
	RichText:              classText,
	Number:                classNumber,
	Checkbox:              classCheckbox,
	Date:                  classDate,
	DateTime:              classDateTime,
	MultipleRecordLinks:   classRecordLinks,
	SingleSelect:          classSingleSelect,
	SingleCollaborator:    classSingleSelect,
	MultipleSelects:       classMultiSelect,
	MultipleAttachments:   classAttachments,
	CreatedTime:           classReadOnly,
	Percent:               classUnwritable,
	Currency:              classUnwritable,
	MultipleCollaborators: classUnwritable,
	Formula:               classUnwritable,
	Rollup:                classUnwritable,
	Count:                 classUnwritable,
	MultipleLookupValues:  classUnwritable,
	AutoNumber:            classUnwritable,
	Barcode:               classUnwritable,
	Rating:                classUnwritable,
	Duration:              classUnwritable,
	LastModifiedTime:      classUnwritable,
	CreatedBy:             classUnwritable,
	LastModifiedBy:        classUnwritable,
	Button:                classUnwritable,
}

// Valid reports whether t is in the catalog.
func (t FieldType) Valid() bool {
	_, ok := fieldClasses[t]
	return ok
}

// ParseFieldType validates s against the catalog.
func ParseFieldType(s string) (FieldType, error) {
	t := FieldType(s)
	if !t.Valid() {
		return "", NewError(fmt.Sprintf("Invalid field type %s", s), WithCode(ErrInvalidFieldType))
	}
	return t, nil
}

func (t FieldType) class() fieldClass { return fieldClasses[t] }
