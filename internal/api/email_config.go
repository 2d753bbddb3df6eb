package api

import (
	"net/http"

	"github.com/legacycamp/camp-api/internal/mailing"
	"github.com/legacycamp/camp-api/internal/pkg/httputil"
)

const notConfigured = "NÃO CONFIGURADO"

// secretStatus reports whether a setting is present without exposing it.
type secretStatus struct {
	Configured bool   `json:"configured"`
	Status     string `json:"status"`
}

// secret describes a credential: only presence is reported.
func secret(v string) secretStatus {
	if v == "" {
		return secretStatus{Status: notConfigured}
	}
	return secretStatus{Configured: true, Status: "Configurado"}
}

// visible describes a non-secret identifier, shown truncated.
func visible(v string, keep int) secretStatus {
	if v == "" {
		return secretStatus{Status: notConfigured}
	}
	if len(v) > keep {
		v = v[:keep] + "..."
	}
	return secretStatus{Configured: true, Status: v}
}

type mailConfigReport struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Config  struct {
		Environment struct {
			NodeEnv    string `json:"nodeEnv"`
			RailwayEnv string `json:"railwayEnv"`
			Production bool   `json:"production"`
		} `json:"environment"`
		Provider  mailing.Selection       `json:"provider"`
		FromEmail string                  `json:"fromEmail"`
		Settings  map[string]secretStatus `json:"settings"`
	} `json:"config"`
	Recommendations struct {
		Issues    []string `json:"issues"`
		NextSteps []string `json:"nextSteps"`
	} `json:"recommendations"`
}

// MailConfig handles GET /email/config. It reports which provider was
// selected and which settings are present; secret values are never echoed.
func (h *Handlers) MailConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg
	mail := cfg.Mail

	var rep mailConfigReport
	rep.Success = true
	rep.Message = "Status das configurações de email"

	rep.Config.Environment.NodeEnv = orDefault(cfg.Environment, notConfigured)
	rep.Config.Environment.RailwayEnv = orDefault(cfg.RailwayEnvironment, "NÃO DETECTADO")
	rep.Config.Environment.Production = cfg.IsProduction()
	rep.Config.Provider = h.selection
	rep.Config.FromEmail = orDefault(mail.FromAddress, "EMAIL_USER não configurado")
	rep.Config.Settings = map[string]secretStatus{
		"EMAIL_USER":           visible(mail.SMTP.Username, 64),
		"EMAIL_PASSWORD":       secret(mail.SMTP.Password),
		"GOOGLE_CLIENT_ID":     visible(mail.Gmail.ClientID, 20),
		"GOOGLE_CLIENT_SECRET": secret(mail.Gmail.ClientSecret),
		"GOOGLE_REFRESH_TOKEN": secret(mail.Gmail.RefreshToken),
		"RESEND_API_KEY":       secret(mail.Resend.APIKey),
		"WEB3FORMS_ACCESS_KEY": secret(mail.Web3Forms.AccessKey),
		"AWS_SES_ACCESS_KEY":   secret(mail.SES.AccessKey),
		"AWS_SES_SECRET_KEY":   secret(mail.SES.SecretKey),
		"PAYMENT_LINK_LOTE1":   visible(cfg.Payment.Lote1Link, 80),
		"PAYMENT_LINK_DEFAULT": visible(cfg.Payment.DefaultLink, 80),
		"CONTRACT_URL":         visible(cfg.Contract.URL, 80),
	}

	issues := []string{}
	if mail.FromAddress == "" {
		issues = append(issues, "Configure EMAIL_USER")
	}
	if h.selection.Provider == "gmail" && !mail.Gmail.Configured() {
		issues = append(issues, "Configure GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET e GOOGLE_REFRESH_TOKEN")
	}
	if h.selection.Provider == "smtp" && mail.SMTP.Password == "" {
		issues = append(issues, "Configure EMAIL_PASSWORD (senha de app do Gmail)")
	}
	if h.selection.Provider == "web3forms" {
		issues = append(issues,
			"Web3Forms entrega todos os emails na caixa do dono do formulário; o inscrito aparece apenas como reply-to e não recebe a mensagem",
			"Web3Forms não envia anexos: o contrato não será entregue")
	}
	if cfg.Payment.Lote1Link == "" || cfg.Payment.DefaultLink == "" {
		issues = append(issues, "Configure PAYMENT_LINK_LOTE1 e PAYMENT_LINK_DEFAULT")
	}
	rep.Recommendations.Issues = issues

	steps := []string{"Teste o envio de email com /email/test/1"}
	if cfg.IsProduction() {
		steps = append(steps, "Monitore os logs em tempo real no Railway Dashboard")
	} else {
		steps = append(steps, "Monitore os logs no terminal local")
	}
	if !mail.Gmail.Configured() && mail.Gmail.ClientID != "" {
		steps = append(steps, "Use /email/auth-url para gerar o refresh token do Gmail")
	}
	rep.Recommendations.NextSteps = steps

	httputil.OK(w, rep)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
