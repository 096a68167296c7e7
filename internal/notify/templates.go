package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
)

// Message — отрисованное уведомление.
type Message struct {
	Subject string
	Body    string
}

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(kind entity.NotificationKind, subject, body string) messageTemplate {
	return messageTemplate{
		subject: template.Must(template.New(string(kind) + ".subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.New(string(kind) + ".body").Option("missingkey=zero").Parse(body)),
	}
}

// Продавец в payment_received видит сумму за вычетом комиссии, покупатель в payment_completed полную.
var templates = map[entity.NotificationKind]messageTemplate{
	entity.NotificationProposalReceived: mustTemplate(entity.NotificationProposalReceived,
		`Новое предложение по проекту «{{.project_title}}»`,
		`На ваш проект «{{.project_title}}» пришло новое предложение на сумму {{.price}}.`),
	entity.NotificationProposalAccepted: mustTemplate(entity.NotificationProposalAccepted,
		`Ваше предложение принято`,
		`Покупатель принял ваше предложение по проекту «{{.project_title}}». Можно приступать к работе.`),
	entity.NotificationProposalRejected: mustTemplate(entity.NotificationProposalRejected,
		`Ваше предложение отклонено`,
		`К сожалению, ваше предложение по проекту «{{.project_title}}» отклонено.`),
	entity.NotificationPaymentReceived: mustTemplate(entity.NotificationPaymentReceived,
		`Поступила оплата`,
		`Проект оплачен. К выплате: {{.net}} {{.currency}} (сумма {{.amount}}, комиссия площадки {{.commission}}).`),
	entity.NotificationPaymentCompleted: mustTemplate(entity.NotificationPaymentCompleted,
		`Оплата прошла успешно`,
		`Платёж на сумму {{.amount}} {{.currency}} успешно проведён.`),
	entity.NotificationMessageReceived: mustTemplate(entity.NotificationMessageReceived,
		`Новое сообщение по проекту «{{.project_title}}»`,
		`{{.preview}}`),
}

// Render подставляет параметры уведомления в шаблон его вида.
func Render(n entity.Notification) (Message, error) {
	tpl, ok := templates[n.Kind]
	if !ok {
		return Message{}, fmt.Errorf("notify: нет шаблона для %q", n.Kind)
	}

	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, n.Params); err != nil {
		return Message{}, fmt.Errorf("notify: тема %q: %w", n.Kind, err)
	}
	if err := tpl.body.Execute(&body, n.Params); err != nil {
		return Message{}, fmt.Errorf("notify: текст %q: %w", n.Kind, err)
	}
	return Message{Subject: subject.String(), Body: body.String()}, nil
}
