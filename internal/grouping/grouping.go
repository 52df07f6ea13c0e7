// Package grouping clusters related emails so one ticket can cover them all.
//
// Grouping is a greedy single pass, not a graph-components algorithm. Emails
// are visited oldest first; each email that is not yet in a group becomes the
// primary of a new group, and every other unassigned email that the pairwise
// scorer judges likely related to that primary joins it. Membership is decided
// against the primary only, so a chain X~Y~Z where X and Z are unrelated puts
// Y with X and leaves Z to start its own group.
//
// Cost is O(n²) pairwise comparisons for n emails.
package grouping

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deskops/mailtriage/internal/similarity"
	"github.com/deskops/mailtriage/internal/types"
)

// DefaultCommonKeywordLimit is how many shared keywords a group reports
const DefaultCommonKeywordLimit = 5

// DefaultTitle is used when the primary email has no detected issue type
const DefaultTitle = "General Issue"

// DefaultCategory is used when the primary email has no detected issue type
const DefaultCategory = "general"

// groupNamespace seeds group ids so the same primary always yields the same id
var groupNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("mailtriage/email-group"))

// DateRange spans the receive times of a group's members
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// EmailGroup is a cluster of emails that likely describe the same problem
type EmailGroup struct {
	ID                string                 `json:"id"`
	PrimaryEmail      *types.AnalyzedEmail   `json:"primary_email"`
	RelatedEmails     []*types.AnalyzedEmail `json:"related_emails"`
	SuggestedTitle    string                 `json:"suggested_title"`
	SuggestedCategory string                 `json:"suggested_category"`
	SuggestedPriority string                 `json:"suggested_priority"`
	CommonKeywords    []string               `json:"common_keywords"`
	Participants      []string               `json:"participants"`
	DateRange         DateRange              `json:"date_range"`
}

// Members returns the primary email followed by the related emails
func (g *EmailGroup) Members() []*types.AnalyzedEmail {
	members := make([]*types.AnalyzedEmail, 0, 1+len(g.RelatedEmails))
	members = append(members, g.PrimaryEmail)
	return append(members, g.RelatedEmails...)
}

// Size is the number of emails in the group
func (g *EmailGroup) Size() int {
	return 1 + len(g.RelatedEmails)
}

// Grouper partitions analyzed emails into groups
type Grouper struct {
	scorer             *similarity.Scorer
	commonKeywordLimit int
}

// NewGrouper creates a grouper. A nil scorer uses the default scoring model
// and a non-positive limit uses DefaultCommonKeywordLimit.
func NewGrouper(scorer *similarity.Scorer, commonKeywordLimit int) *Grouper {
	if scorer == nil {
		scorer = similarity.DefaultScorer()
	}
	if commonKeywordLimit <= 0 {
		commonKeywordLimit = DefaultCommonKeywordLimit
	}
	return &Grouper{scorer: scorer, commonKeywordLimit: commonKeywordLimit}
}

// GroupRelatedEmails groups emails with the default scoring model.
// Email ids should be unique; see Grouper.Group for how repeats are handled.
func GroupRelatedEmails(emails []*types.AnalyzedEmail) []*EmailGroup {
	return NewGrouper(nil, 0).Group(emails)
}

// Group partitions emails: every non-nil email ends up in exactly one group.
// Each member's GroupID is set to its group's id.
//
// Group ids are derived from the primary email id. When the same id leads
// more than one group, later groups get an occurrence suffix in the id name,
// so ids stay unique and deterministic for a given input order.
func (g *Grouper) Group(emails []*types.AnalyzedEmail) []*EmailGroup {
	sorted := make([]*types.AnalyzedEmail, 0, len(emails))
	for _, e := range emails {
		if e != nil {
			sorted = append(sorted, e)
		}
	}
	slices.SortStableFunc(sorted, func(a, b *types.AnalyzedEmail) int {
		return a.ReceivedAt.Compare(b.ReceivedAt)
	})

	groups := []*EmailGroup{}
	assigned := make([]bool, len(sorted))
	usedNames := make(map[string]bool)

	for i, primary := range sorted {
		if assigned[i] {
			continue
		}

		var related []*types.AnalyzedEmail
		for j, other := range sorted {
			if j == i || assigned[j] {
				continue
			}
			if g.scorer.ScoreEmailPair(primary, other).IsLikelyRelated {
				related = append(related, other)
				assigned[j] = true
			}
		}
		assigned[i] = true

		groups = append(groups, g.newGroup(groupName(primary.ID, usedNames), primary, related))
	}

	return groups
}

// groupName returns id, or id#N with the smallest N not taken yet, and
// marks the result as used
func groupName(id string, used map[string]bool) string {
	name := id
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s#%d", id, n)
	}
	used[name] = true
	return name
}

func (g *Grouper) newGroup(name string, primary *types.AnalyzedEmail, related []*types.AnalyzedEmail) *EmailGroup {
	if related == nil {
		related = []*types.AnalyzedEmail{}
	}
	group := &EmailGroup{
		ID:                uuid.NewSHA1(groupNamespace, []byte(name)).String(),
		PrimaryEmail:      primary,
		RelatedEmails:     related,
		SuggestedTitle:    SuggestTitle(primary.Entities),
		SuggestedCategory: SuggestCategory(primary.Entities),
		SuggestedPriority: SuggestPriority(primary.Entities),
	}

	members := group.Members()
	group.CommonKeywords = commonKeywords(members, g.commonKeywordLimit)
	group.Participants = participants(members)
	group.DateRange = dateRange(members)

	for _, m := range members {
		m.GroupID = group.ID
	}
	return group
}

// SuggestTitle is "{issue type} - {first two products}", or just the issue type
func SuggestTitle(e types.Entities) string {
	title := e.IssueType
	if title == "" {
		title = DefaultTitle
	}
	if len(e.ProductMentions) > 0 {
		products := e.ProductMentions[:min(2, len(e.ProductMentions))]
		title += " - " + strings.Join(products, " ")
	}
	return title
}

// SuggestCategory is the slug of the issue type
func SuggestCategory(e types.Entities) string {
	if e.IssueType == "" {
		return DefaultCategory
	}
	return strings.Join(strings.Fields(strings.ToLower(e.IssueType)), "-")
}

// SuggestPriority is high for critical or high urgency, medium otherwise
func SuggestPriority(e types.Entities) string {
	if e.Urgency == types.UrgencyCritical || e.Urgency == types.UrgencyHigh {
		return "high"
	}
	return "medium"
}

// commonKeywords returns keywords found in more than one member, most
// frequent first, first-seen order on ties
func commonKeywords(members []*types.AnalyzedEmail, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, m := range members {
		seen := make(map[string]bool)
		for _, kw := range m.Entities.Keywords {
			if seen[kw] {
				continue
			}
			seen[kw] = true
			if counts[kw] == 0 {
				order = append(order, kw)
			}
			counts[kw]++
		}
	}

	common := []string{}
	for _, kw := range order {
		if counts[kw] > 1 {
			common = append(common, kw)
		}
	}
	sort.SliceStable(common, func(i, j int) bool {
		return counts[common[i]] > counts[common[j]]
	})
	if len(common) > limit {
		common = common[:limit]
	}
	return common
}

func participants(members []*types.AnalyzedEmail) []string {
	seen := make(map[string]bool)
	people := []string{}
	for _, m := range members {
		addr := m.Entities.SenderAddress
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		people = append(people, addr)
	}
	return people
}

func dateRange(members []*types.AnalyzedEmail) DateRange {
	r := DateRange{Start: members[0].ReceivedAt, End: members[0].ReceivedAt}
	for _, m := range members[1:] {
		r.Start = minTime(r.Start, m.ReceivedAt)
		r.End = maxTime(r.End, m.ReceivedAt)
	}
	return r
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
