package main

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/legacycamp/camp-api/internal/mailing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifyingProvider struct {
	err error
}

func (p *verifyingProvider) Name() domain.ProviderType { return domain.ProviderSMTP }

func (p *verifyingProvider) Send(context.Context, *domain.OutboundMessage) (*domain.SendResult, error) {
	return &domain.SendResult{MessageID: "<1@test>", Provider: domain.ProviderSMTP}, nil
}

func (p *verifyingProvider) Verify(context.Context) error { return p.err }

type plainProvider struct{}

func (plainProvider) Name() domain.ProviderType { return domain.ProviderWeb3Forms }

func (plainProvider) Send(context.Context, *domain.OutboundMessage) (*domain.SendResult, error) {
	return &domain.SendResult{Provider: domain.ProviderWeb3Forms}, nil
}

type validatorFunc func(ctx context.Context) error

func (f validatorFunc) ValidateCredentials(ctx context.Context) error { return f(ctx) }

type staticContract struct {
	att *domain.Attachment
	err error
}

func (s staticContract) Load(context.Context) (*domain.Attachment, error) { return s.att, s.err }

func TestCheckSender(t *testing.T) {
	assert.True(t, checkSender(config.MailConfig{FromAddress: "camp@example.com"}).Passed)
	assert.False(t, checkSender(config.MailConfig{FromAddress: "Camp <camp@example.com>"}).Passed)
	assert.False(t, checkSender(config.MailConfig{}).Passed)
}

func TestCheckProvider(t *testing.T) {
	ctx := context.Background()

	r := checkProvider(ctx, &verifyingProvider{})
	assert.True(t, r.Passed)

	r = checkProvider(ctx, &verifyingProvider{err: mailing.ErrAuth})
	assert.False(t, r.Passed)
	assert.Contains(t, r.Detail, "credentials")

	r = checkProvider(ctx, plainProvider{})
	assert.True(t, r.Skipped)
}

func TestCheckGmailCredentials(t *testing.T) {
	ctx := context.Background()
	assert.True(t, checkGmailCredentials(ctx, validatorFunc(func(context.Context) error { return nil })).Passed)

	r := checkGmailCredentials(ctx, validatorFunc(func(context.Context) error { return errors.New("invalid_client") }))
	assert.False(t, r.Passed)
	assert.Equal(t, "invalid_client", r.Detail)
}

func TestCheckTemplates(t *testing.T) {
	r, err := mailing.NewRenderer(mailing.RendererOptions{})
	require.NoError(t, err)

	res := checkTemplates(r, nil)
	assert.True(t, res.Passed, res.Detail)

	res = checkTemplates(nil, errors.New("parse failed"))
	assert.False(t, res.Passed)
}

func TestCheckContract(t *testing.T) {
	ctx := context.Background()
	ok := checkContract(ctx, staticContract{att: &domain.Attachment{Filename: "contrato.pdf", Content: []byte("%PDF"), Source: "disk"}})
	assert.True(t, ok.Passed)
	assert.Contains(t, ok.Detail, "contrato.pdf")

	bad := checkContract(ctx, staticContract{err: errors.New("no contract source")})
	assert.False(t, bad.Passed)
}

func TestCheckDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM inscricoes`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	r := checkDatabase(context.Background(), db)
	assert.True(t, r.Passed)
	assert.Equal(t, "42 inscrições", r.Detail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckSend(t *testing.T) {
	r, err := mailing.NewRenderer(mailing.RendererOptions{})
	require.NoError(t, err)
	d := mailing.NewDeliverer(&verifyingProvider{}, r, mailing.Sender{Name: "Camp", Address: "camp@example.com"})

	res := checkSend(context.Background(), d, "camp@example.com")
	assert.True(t, res.Passed, res.Detail)
	assert.Contains(t, res.Detail, "message_id=<1@test>")
}

func TestPrintReport(t *testing.T) {
	assert.True(t, printReport([]checkResult{{Name: "a", Passed: true}, {Name: "b", Skipped: true}}))
	assert.False(t, printReport([]checkResult{{Name: "a", Passed: true}, {Name: "b"}}))
}
