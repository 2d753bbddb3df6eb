package mailing

import (
	"embed"
	"strings"

	"github.com/legacycamp/camp-api/internal/domain"
)

//go:embed templates/*.liquid
var templateFS embed.FS

const (
	footerText   = "Legacy Camp - Transformando vidas através de experiências únicas"
	pixKey       = "pix.legacy.am@gmail.com"
	supportPhone = "+55 92 8409-5783"
	supportEmail = "lgcymanaus@gmail.com"

	genericStatusLabel = "Status atualizado"
)

// kindTemplate describes one email kind: its body template, <title> and
// fixed subject. Custom emails take their subject from Params.
type kindTemplate struct {
	file    string
	title   string
	subject string
}

var kindTemplates = map[domain.EmailKind]kindTemplate{
	domain.KindWelcome: {
		file:    "templates/welcome.liquid",
		title:   "Bem-vindo ao Legacy Camp",
		subject: "🎉 Bem-vindo ao Legacy Camp!",
	},
	domain.KindStatusUpdate: {
		file:    "templates/status_update.liquid",
		title:   "Atualização de Status - Legacy Camp",
		subject: "📋 Atualização de Status - Legacy Camp",
	},
	domain.KindCustom: {
		file:  "templates/custom.liquid",
		title: "Comunicado - Legacy Camp",
	},
	domain.KindPaymentInstructions: {
		file:    "templates/payment_instructions.liquid",
		title:   "Instruções de Pagamento - Legacy Camp",
		subject: "📌 Instruções de pagamento - Legacy Camp",
	},
	domain.KindContract: {
		file:    "templates/contract.liquid",
		title:   "Contrato de Participação - Legacy Camp",
		subject: "📄 Contrato de participação - Legacy Camp",
	},
}

var statusLabels = map[string]string{
	string(domain.StatusAprovada):  "Sua inscrição foi aprovada! 🎉",
	string(domain.StatusReprovada): "Sua inscrição foi reprovada.",
	string(domain.StatusRejeitada): "Sua inscrição foi reprovada.",
	string(domain.StatusPendente):  "Sua inscrição está em análise.",
	string(domain.StatusCancelada): "Sua inscrição foi cancelada.",
}

// StatusLabel returns the headline for a status update. Unknown statuses
// get the generic label.
func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return genericStatusLabel
}

// PaymentMethodLabel returns the display name of a payment method, or the
// raw value when the method is not one of ours.
func PaymentMethodLabel(method string) string {
	switch strings.ToLower(method) {
	case domain.PaymentCartao:
		return "Cartão de crédito"
	case domain.PaymentPix:
		return "PIX"
	case domain.PaymentCarne:
		return "Carnê Legacy"
	}
	return method
}
