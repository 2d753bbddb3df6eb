// Command mailcheck verifies the mail setup of a deployment: provider
// selection, credentials, templates, the contract attachment and the
// database. With -send it also mails a test message to the sender mailbox.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/legacycamp/camp-api/internal/auth"
	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/legacycamp/camp-api/internal/mailing"

	_ "github.com/lib/pq"
)

type checkResult struct {
	Name    string
	Passed  bool
	Skipped bool
	Detail  string
	Elapsed time.Duration
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "optional YAML config file")
	send := flag.Bool("send", false, "send a test email to the sender address")
	skipDB := flag.Bool("skip-db", false, "skip the database checks")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	provider, sel := mailing.NewProvider(ctx, cfg)

	fmt.Println("=========================================================")
	fmt.Println(" Mail Setup Verification")
	fmt.Println("=========================================================")
	fmt.Printf("Environment:  %s\n", cfg.Environment)
	fmt.Printf("Provider:     %s (%s)\n", sel.Provider, sel.Reason)
	if sel.SMTPProfile != "" {
		fmt.Printf("SMTP profile: %s\n", sel.SMTPProfile)
	}
	fmt.Printf("From:         %s\n", cfg.Mail.FromAddress)
	fmt.Println("---------------------------------------------------------")

	renderer, rerr := mailing.NewRenderer(mailing.RendererOptions{EscapeCustomMessages: cfg.Mail.EscapeCustomMessages})

	var results []checkResult
	results = append(results, checkSender(cfg.Mail))
	results = append(results, checkProvider(ctx, provider))
	if sel.Provider == domain.ProviderGmail {
		results = append(results, checkGmailCredentials(ctx, auth.NewConsentManager(cfg.Mail.Gmail, auth.ConsentOptions{})))
	}
	results = append(results, checkTemplates(renderer, rerr))
	results = append(results, checkContract(ctx, mailing.NewContractLoader(cfg.Contract, nil)))

	if *skipDB || cfg.Database.URL == "" {
		results = append(results, checkResult{Name: "Database reachable", Skipped: true, Detail: "DATABASE_URL not set or -skip-db"})
	} else {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			results = append(results, checkResult{Name: "Database reachable", Detail: fmt.Sprintf("open: %v", err)})
		} else {
			defer db.Close()
			results = append(results, checkDatabase(ctx, db))
		}
	}

	if *send && rerr == nil {
		d := mailing.NewDeliverer(provider, renderer,
			mailing.Sender{Name: cfg.Mail.FromName, Address: cfg.Mail.FromAddress},
			mailing.WithRetryPolicy(mailing.DefaultRetryPolicy(sel.Provider, cfg.Mail.MaxAttempts)),
		)
		results = append(results, checkSend(ctx, d, cfg.Mail.FromAddress))
	}

	if !printReport(results) {
		os.Exit(1)
	}
}

func printReport(results []checkResult) bool {
	fmt.Println()
	fmt.Println("=========================================================")
	fmt.Println(" VERIFICATION REPORT")
	fmt.Println("=========================================================")

	allPassed := true
	for i, r := range results {
		status := "PASS ✓"
		switch {
		case r.Skipped:
			status = "SKIP -"
		case !r.Passed:
			status = "FAIL ✗"
			allPassed = false
		}
		fmt.Printf("  [%d] %-40s %s  (%s)\n", i+1, r.Name, status, r.Elapsed.Round(time.Millisecond))
		if r.Detail != "" {
			for _, line := range strings.Split(r.Detail, "\n") {
				fmt.Printf("      %s\n", line)
			}
		}
	}

	fmt.Println("=========================================================")
	if allPassed {
		fmt.Println("  OVERALL: PASS ✓")
	} else {
		fmt.Println("  OVERALL: FAIL ✗")
	}
	fmt.Println("=========================================================")
	return allPassed
}

func checkSender(mc config.MailConfig) checkResult {
	name := "Sender address"
	if !domain.ValidEmail(mc.FromAddress) {
		return checkResult{Name: name, Detail: fmt.Sprintf("invalid or missing from address %q", mc.FromAddress)}
	}
	return checkResult{Name: name, Passed: true, Detail: mc.FromAddress}
}

func checkProvider(ctx context.Context, p mailing.Provider) checkResult {
	start := time.Now()
	name := fmt.Sprintf("Provider %s verify", p.Name())

	v, ok := p.(mailing.Verifier)
	if !ok {
		return checkResult{Name: name, Skipped: true, Detail: "provider has no connectivity check"}
	}
	vctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := v.Verify(vctx); err != nil {
		return checkResult{Name: name, Detail: err.Error(), Elapsed: time.Since(start)}
	}
	return checkResult{Name: name, Passed: true, Elapsed: time.Since(start)}
}

// credentialValidator is satisfied by *auth.ConsentManager.
type credentialValidator interface {
	ValidateCredentials(ctx context.Context) error
}

func checkGmailCredentials(ctx context.Context, v credentialValidator) checkResult {
	start := time.Now()
	name := "Gmail OAuth client"
	if err := v.ValidateCredentials(ctx); err != nil {
		return checkResult{Name: name, Detail: err.Error(), Elapsed: time.Since(start)}
	}
	return checkResult{Name: name, Passed: true, Elapsed: time.Since(start)}
}

var sampleRegistration = &domain.Registration{
	ID:              1,
	FullName:        "Participante Teste",
	Email:           "teste@example.com",
	RegistrationLot: domain.Lote1,
	PaymentMethod:   domain.PaymentCartao,
	Status:          domain.StatusPendente,
}

func checkTemplates(r *mailing.Renderer, parseErr error) checkResult {
	start := time.Now()
	name := "Templates render"
	if parseErr != nil {
		return checkResult{Name: name, Detail: parseErr.Error()}
	}

	params := mailing.Params{
		NewStatus:   string(domain.StatusAprovada),
		Subject:     "Teste",
		Message:     "Linha 1\nLinha 2",
		PaymentLink: "https://pay.example.com",
	}
	kinds := []domain.EmailKind{
		domain.KindWelcome, domain.KindStatusUpdate, domain.KindCustom,
		domain.KindPaymentInstructions, domain.KindContract,
	}
	var failed []string
	for _, k := range kinds {
		subject, html, err := r.Render(k, sampleRegistration, params)
		switch {
		case err != nil:
			failed = append(failed, fmt.Sprintf("%s: %v", k, err))
		case subject == "" || html == "":
			failed = append(failed, fmt.Sprintf("%s: empty output", k))
		}
	}
	if len(failed) > 0 {
		return checkResult{Name: name, Detail: strings.Join(failed, "\n"), Elapsed: time.Since(start)}
	}
	return checkResult{Name: name, Passed: true, Detail: fmt.Sprintf("%d templates", len(kinds)), Elapsed: time.Since(start)}
}

// contractSource is satisfied by *mailing.ContractLoader.
type contractSource interface {
	Load(ctx context.Context) (*domain.Attachment, error)
}

func checkContract(ctx context.Context, src contractSource) checkResult {
	start := time.Now()
	name := "Contract attachment"
	att, err := src.Load(ctx)
	if err != nil {
		return checkResult{Name: name, Detail: err.Error(), Elapsed: time.Since(start)}
	}
	detail := fmt.Sprintf("%s, %d bytes from %s", att.Filename, len(att.Content), att.Source)
	return checkResult{Name: name, Passed: true, Detail: detail, Elapsed: time.Since(start)}
}

func checkDatabase(ctx context.Context, db *sql.DB) checkResult {
	start := time.Now()
	name := "Database reachable"

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return checkResult{Name: name, Detail: fmt.Sprintf("ping: %v", err), Elapsed: time.Since(start)}
	}

	var count int64
	err := db.QueryRowContext(pingCtx, `SELECT COUNT(*) FROM inscricoes`).Scan(&count)
	if err != nil {
		return checkResult{Name: name, Detail: fmt.Sprintf("inscricoes table: %v", err), Elapsed: time.Since(start)}
	}
	return checkResult{Name: name, Passed: true, Detail: fmt.Sprintf("%d inscrições", count), Elapsed: time.Since(start)}
}

// outcomeDeliverer is satisfied by *mailing.Deliverer.
type outcomeDeliverer interface {
	DeliverWithOutcome(ctx context.Context, reg *domain.Registration, kind domain.EmailKind, p mailing.Params) mailing.Outcome
}

func checkSend(ctx context.Context, d outcomeDeliverer, to string) checkResult {
	start := time.Now()
	name := "Test email to sender mailbox"

	reg := *sampleRegistration
	reg.Email = to
	out := d.DeliverWithOutcome(ctx, &reg, domain.KindCustom, mailing.Params{
		Subject: "Legacy Camp: teste de envio",
		Message: fmt.Sprintf("Mensagem de verificação enviada em %s.", time.Now().Format(time.RFC3339)),
	})
	detail := fmt.Sprintf("provider=%s attempts=%d", out.Provider, out.Attempts)
	if !out.Success {
		return checkResult{Name: name, Detail: detail + "\n" + out.LastError, Elapsed: time.Since(start)}
	}
	if out.MessageID != "" {
		detail += " message_id=" + out.MessageID
	}
	return checkResult{Name: name, Passed: true, Detail: detail, Elapsed: time.Since(start)}
}
