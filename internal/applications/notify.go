package applications

import (
	"bytes"
	htmltemplate "html/template"
	"io"
	"text/template"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/mailer"
)

// link is an attachment reference rendered into the admin notification.
type link struct {
	Name string
	URL  string
}

type notifyData struct {
	College string
	App     *Application
	Links   []link
}

var adminText = template.Must(template.New("admin").Parse(`A new admission application was submitted.

Name:          {{.App.ApplicantName}}
Email:         {{.App.Email}}
Phone:         {{.App.Phone}}
Program:       {{.App.Program}}
{{- with .App.Qualification}}
Qualification: {{.}}{{end}}
{{- with .App.Address}}
Address:       {{.}}{{end}}
{{- with .App.Message}}

Message:
{{.}}{{end}}
{{- if .Links}}

Documents:
{{range .Links}}- {{.Name}}: {{.URL}}
{{end}}{{end}}
Application ID: {{.App.ID}}
`))

var adminHTML = htmltemplate.Must(htmltemplate.New("admin").Parse(`<h2>New admission application</h2>
<table>
<tr><td>Name</td><td>{{.App.ApplicantName}}</td></tr>
<tr><td>Email</td><td>{{.App.Email}}</td></tr>
<tr><td>Phone</td><td>{{.App.Phone}}</td></tr>
<tr><td>Program</td><td>{{.App.Program}}</td></tr>
{{with .App.Qualification}}<tr><td>Qualification</td><td>{{.}}</td></tr>{{end}}
{{with .App.Address}}<tr><td>Address</td><td>{{.}}</td></tr>{{end}}
</table>
{{with .App.Message}}<p>{{.}}</p>{{end}}
{{if .Links}}<ul>{{range .Links}}<li><a href="{{.URL}}">{{.Name}}</a></li>{{end}}</ul>{{end}}
<p>Application ID: {{.App.ID}}</p>
`))

var applicantText = template.Must(template.New("applicant").Parse(`Dear {{.App.ApplicantName}},

Thank you for applying to the {{.App.Program}} program at {{.College}}.
We have received your application (reference {{.App.ID}}) and will contact you
once it has been reviewed.

Regards,
Admissions Office, {{.College}}
`))

type executor interface {
	Execute(w io.Writer, data interface{}) error
}

func render(t executor, data notifyData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func adminMessage(to string, data notifyData) (mailer.Message, error) {
	text, err := render(adminText, data)
	if err != nil {
		return mailer.Message{}, err
	}
	html, err := render(adminHTML, data)
	if err != nil {
		return mailer.Message{}, err
	}
	return mailer.Message{
		To:      []string{to},
		ReplyTo: data.App.Email,
		Subject: "New application: " + data.App.ApplicantName + " (" + data.App.Program + ")",
		Text:    text,
		HTML:    html,
	}, nil
}

func applicantMessage(data notifyData) (mailer.Message, error) {
	text, err := render(applicantText, data)
	if err != nil {
		return mailer.Message{}, err
	}
	return mailer.Message{
		To:      []string{data.App.Email},
		Subject: "Application received - " + data.College,
		Text:    text,
	}, nil
}
