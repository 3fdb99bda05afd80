package achievement

import "github.com/bizhub-io/gamification-engine/internal/domain/shared"

// ══════════════════════════════════════════════════════════════════════════════
// DEFAULT CATALOG
// Seeded through initializeAchievements(); upserted by name, so re-running
// the seed is idempotent and edits made out of band survive by ID.
// ══════════════════════════════════════════════════════════════════════════════

// Definition is a catalog seed entry before an ID is assigned.
type Definition struct {
	Name        string
	Description string
	Icon        string
	Category    string
	Type        string
	Points      shared.Points
	Criteria    Criteria
}

// DefaultCatalog returns the built-in achievement definitions covering the
// platform's core modules.
func DefaultCatalog() []Definition {
	return []Definition{
		// ─── Social / content ────────────────────────────────────────────────
		{
			Name:        "First Post",
			Description: "Publish your first post",
			Icon:        "pencil",
			Category:    "social",
			Type:        "milestone",
			Points:      10,
			Criteria:    Criteria{Kind: CriteriaCount, Action: "post_created", Threshold: 1},
		},
		{
			Name:        "Power Poster",
			Description: "Publish 10 posts",
			Icon:        "flame",
			Category:    "social",
			Type:        "volume",
			Points:      50,
			Criteria:    Criteria{Kind: CriteriaCount, Action: "post_created", Threshold: 10},
		},
		{
			Name:        "Content Machine",
			Description: "Publish 100 posts",
			Icon:        "rocket",
			Category:    "social",
			Type:        "volume",
			Points:      250,
			Criteria:    Criteria{Kind: CriteriaCount, Action: "post_created", Threshold: 100},
		},
		{
			Name:        "Daily Habit",
			Description: "Post on 7 consecutive days",
			Icon:        "calendar",
			Category:    "social",
			Type:        "streak",
			Points:      75,
			Criteria:    Criteria{Kind: CriteriaStreak, Action: "post_created", Threshold: 7},
		},

		// ─── CRM / sales ─────────────────────────────────────────────────────
		{
			Name:        "First Contact",
			Description: "Add your first contact",
			Icon:        "user-plus",
			Category:    "crm",
			Type:        "milestone",
			Points:      10,
			Criteria:    Criteria{Kind: CriteriaCount, Action: "contact_created", Threshold: 1},
		},
		{
			Name:        "Deal Maker",
			Description: "Close 5 deals",
			Icon:        "handshake",
			Category:    "crm",
			Type:        "volume",
			Points:      100,
			Criteria:    Criteria{Kind: CriteriaCount, Action: "deal_closed", Threshold: 5},
		},
		{
			Name:        "Rainmaker",
			Description: "Close $10,000 in deal value",
			Icon:        "trophy",
			Category:    "crm",
			Type:        "value",
			Points:      300,
			Criteria:    Criteria{Kind: CriteriaValue, Action: "deal_closed", Threshold: 10000},
		},
		{
			Name:        "Pipeline Pro",
			Description: "Work your pipeline on 14 consecutive days",
			Icon:        "chart-up",
			Category:    "crm",
			Type:        "streak",
			Points:      150,
			Criteria:    Criteria{Kind: CriteriaStreak, Action: "deal_updated", Threshold: 14},
		},

		// ─── Messaging / engagement ──────────────────────────────────────────
		{
			Name:        "Conversation Starter",
			Description: "Send your first message",
			Icon:        "chat",
			Category:    "messaging",
			Type:        "milestone",
			Points:      5,
			Criteria:    Criteria{Kind: CriteriaCount, Action: "message_sent", Threshold: 1},
		},
		{
			Name:        "Always On",
			Description: "Reply to messages on 30 consecutive days",
			Icon:        "bolt",
			Category:    "messaging",
			Type:        "streak",
			Points:      200,
			Criteria:    Criteria{Kind: CriteriaStreak, Action: "message_sent", Threshold: 30},
		},

		// ─── Billing ─────────────────────────────────────────────────────────
		{
			Name:        "First Invoice",
			Description: "Send your first invoice",
			Icon:        "receipt",
			Category:    "billing",
			Type:        "milestone",
			Points:      10,
			Criteria:    Criteria{Kind: CriteriaCount, Action: "invoice_sent", Threshold: 1},
		},
		{
			Name:        "Revenue Stream",
			Description: "Collect $25,000 in paid invoices",
			Icon:        "bank",
			Category:    "billing",
			Type:        "value",
			Points:      500,
			Criteria:    Criteria{Kind: CriteriaValue, Action: "invoice_paid", Threshold: 25000},
		},
	}
}
