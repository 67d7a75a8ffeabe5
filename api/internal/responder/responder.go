// Package responder picks the landlord's canned reply to a tenant message.
package responder

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"renttalk-tenant-portal/shared/clients/assistant"
	"renttalk-tenant-portal/shared/logx"
	"renttalk-tenant-portal/shared/metricsx"
)

const (
	ReplyMaintenance = "I see you have a maintenance concern. You can submit a formal request through the Maintenance Requests section, or provide more details about the issue here, and I'll help you address it."
	ReplyPayment     = "Regarding your payment inquiry: You can view all payment details in the Payments section. If you have specific questions about your balance or due dates, please let me know."
	ReplyLease       = "For lease-related questions: Your current lease is available for review in your account settings. I'm happy to clarify any specific terms or conditions you're unsure about."
	ReplyGreeting    = "Hello! How can I assist you with your property today?"
	ReplyThanks      = "You're welcome! I'm here to help. Is there anything else you need assistance with?"
)

// Fallbacks answer messages that match no rule.
var Fallbacks = [...]string{
	"Thank you for your message. I'll look into this and get back to you shortly.",
	"I've received your inquiry. Let me check the details and I'll respond with more information.",
	"Thanks for reaching out. I'll review this matter and provide you with an update as soon as possible.",
	"I appreciate your question. Let me gather the relevant information to address your concern properly.",
	"Your message has been received. I'll handle this matter promptly and keep you informed.",
}

// Acknowledgements are the landlord's manual follow-ups.
var Acknowledgements = [...]string{
	"Thanks for your message. I'll look into this right away.",
	"I've received your request and will get back to you shortly.",
	"Thanks for letting me know. I'll schedule a time to address this.",
	"I appreciate you reaching out. Let me check on this for you.",
	"I'll make a note of this and get back to you with more information.",
}

type rule struct {
	keywords []string
	reply    string
}

// Rules are checked in order; the first whose keyword occurs anywhere in
// the lower-cased text wins. "hi" therefore also matches "this".
var rules = []rule{
	{keywords: []string{"maintenance", "repair", "fix"}, reply: ReplyMaintenance},
	{keywords: []string{"payment", "rent", "bill", "fee"}, reply: ReplyPayment},
	{keywords: []string{"lease", "contract", "agreement"}, reply: ReplyLease},
	{keywords: []string{"hello", "hi", "hey"}, reply: ReplyGreeting},
	{keywords: []string{"thank", "thanks", "appreciate"}, reply: ReplyThanks},
}

// Match returns the rule-based reply for text, if any rule matches.
func Match(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.reply, true
			}
		}
	}
	return "", false
}

// Respond maps text to a reply. rng is only consulted when no rule matches.
func Respond(text string, rng *rand.Rand) string {
	if reply, ok := Match(text); ok {
		return reply
	}
	return Fallbacks[rng.IntN(len(Fallbacks))]
}

// Assistant produces free-form replies. *assistant.Client implements it.
type Assistant interface {
	Reply(ctx context.Context, req assistant.ReplyRequest) (string, error)
}

// Responder wraps Respond with a shared rng and an optional remote
// assistant that is asked first.
type Responder struct {
	mu        sync.Mutex
	rng       *rand.Rand
	assistant Assistant
	log       logx.Logger
}

func New(seed uint64, a Assistant, log logx.Logger) *Responder {
	return &Responder{
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		assistant: a,
		log:       log,
	}
}

func (r *Responder) Reply(ctx context.Context, tenantID string, text string) string {
	if r.assistant != nil {
		reply, err := r.assistant.Reply(ctx, assistant.ReplyRequest{TenantID: tenantID, Message: text})
		if err == nil {
			metricsx.IncAutoReply("assistant")
			return reply
		}
		r.log.Warn(ctx, "assistant_unavailable", "assistant failed, using rule-based reply",
			slog.String("error_code", "ASSISTANT_UNAVAILABLE"),
			slog.String("error", err.Error()),
		)
	}
	metricsx.IncAutoReply("rules")
	r.mu.Lock()
	defer r.mu.Unlock()
	return Respond(text, r.rng)
}

// Acknowledge picks one of the five acknowledgements uniformly.
func (r *Responder) Acknowledge() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Acknowledgements[r.rng.IntN(len(Acknowledgements))]
}

// Intn draws from the shared rng. Used for typing delays.
func (r *Responder) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}
