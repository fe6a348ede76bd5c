package domain

import (
	"context"
	"time"

	"github.com/gmessner/simple-cr/internal/repository"
	"github.com/gmessner/simple-cr/internal/reviewers"
	"github.com/gmessner/simple-cr/internal/signedlink"

	"go.uber.org/zap"
)

// Settings is the global review policy.
type Settings struct {
	ProtectedBranch     string
	DefaultTargetBranch string
	TargetBranchRegex   string
	PublicURL           string
	GitLabWebURL        string
	WebhookURL          string
	WebhookSecret       string
}

// Deps are the collaborators of the use cases.
type Deps struct {
	Repo     repository.Repository
	GitLab   GitLab
	Notifier Notifier
	Resolver *reviewers.Resolver
	Codec    *signedlink.Codec
}

// Usecase struct implements all usecase interfaces.
type Usecase struct {
	log          *zap.SugaredLogger
	repo         repository.Repository
	gitlab       GitLab
	notifier     Notifier
	resolver     *reviewers.Resolver
	codec        *signedlink.Codec
	settings     Settings
	timeout      time.Duration
	eventTimeout time.Duration
}

// New constructs a new usecase layer with its dependencies.
func New(
	log *zap.SugaredLogger,
	deps Deps,
	settings Settings,
	timeout time.Duration,
	eventTimeout time.Duration,
) *Usecase {
	return &Usecase{
		log:          log.Named("usecase"),
		repo:         deps.Repo,
		gitlab:       deps.GitLab,
		notifier:     deps.Notifier,
		resolver:     deps.Resolver,
		codec:        deps.Codec,
		settings:     settings,
		timeout:      timeout,
		eventTimeout: eventTimeout,
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// eventContext detaches an event from the delivering request: the webhook
// caller hanging up must not cut a guard-then-write sequence in half.
func (u *Usecase) eventContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(context.WithoutCancel(ctx), u.eventTimeout)
}
