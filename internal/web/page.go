package web

import (
	"github.com/JonMunkholm/subjects/internal/apperrors"
	"github.com/JonMunkholm/subjects/internal/subject"
	"github.com/JonMunkholm/subjects/internal/web/templates"
)

// tableBirthdayLayout is the birth date format of the subjects table.
const tableBirthdayLayout = "02.01.2006"

// pageData is everything the form page shows, in domain terms.
type pageData struct {
	Subjects []subject.Subject
	Input    subject.Input
	Error    *apperrors.UserMessage
	Reasons  []subject.Reason
	Notice   string
}

func (d pageData) params() templates.SubjectsPageParams {
	p := templates.SubjectsPageParams{
		Fields: []templates.FormField{
			{Name: "name", Label: "Name", Value: d.Input.Name},
			{Name: "surname", Label: "Surname", Value: d.Input.Surname},
			{Name: "patronymic", Label: "Patronymic", Value: d.Input.Patronymic, Placeholder: "optional"},
			{Name: "passport_number", Label: "Passport number", Value: d.Input.PassportNumber, Placeholder: "0101000001"},
			{Name: "birthday", Label: "Birth date", Value: d.Input.Birthday, Placeholder: "DD.MM.YYYY"},
		},
		Subjects: subjectRows(d.Subjects),
		Notice:   d.Notice,
	}
	if d.Error != nil {
		alert := toAlert(*d.Error, d.Reasons)
		p.Alert = &alert
	}
	return p
}

func subjectRows(subjects []subject.Subject) []templates.SubjectRow {
	rows := make([]templates.SubjectRow, len(subjects))
	for i, s := range subjects {
		rows[i] = templates.SubjectRow{
			Surname:    s.Surname(),
			Name:       s.Name(),
			Patronymic: s.Patronymic(),
			Passport:   s.Passport(),
			Birthday:   s.Birthday().Format(tableBirthdayLayout),
		}
	}
	return rows
}

func toAlert(msg apperrors.UserMessage, reasons []subject.Reason) templates.Alert {
	alert := templates.Alert{Message: msg.Message, Action: msg.Action, Code: msg.Code}
	for _, r := range reasons {
		alert.Reasons = append(alert.Reasons, string(r))
	}
	return alert
}
