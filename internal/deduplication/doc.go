// Package deduplication decides what to do with each group of incoming
// support emails: skip it as a duplicate of an open ticket, link it to an
// existing ticket, or create a new ticket.
//
// # Overview
//
// CrossAnalyze is the entry point the CLI and HTTP layers call. One run takes
// a snapshot of raw emails and raw tickets and goes through these stages:
//
//  1. Validation: malformed records (missing id, missing receive time,
//     repeated id) are rejected, logged, and reported in Result.Rejected.
//     The rest of the batch is still analyzed.
//  2. Extraction: every email and ticket is analyzed for keywords,
//     references, products, issue type, urgency, and sentiment.
//  3. Grouping: emails are clustered with the greedy primary-first pass of
//     the grouping package.
//  4. Matching: each group's primary email is scored against every ticket.
//     Matches scoring at least MinMatchScore are kept, best first.
//  5. Recommendation: skip, link, or create, with a reason.
//
// Nothing is cached between runs. Every run recomputes from its own snapshot
// and holds no shared mutable state, so concurrent runs are safe.
//
// # Recommendations
//
//   - skip: at least one match is a duplicate (score >= DuplicateThreshold
//     against an open ticket). The reason names the best duplicate.
//   - link: no duplicate, but at least one match has medium or high
//     confidence. The reason names the best such match.
//   - create: anything else.
//
// # Determinism
//
// Output depends only on the input snapshot and the configuration. Sorting is
// stable, group ids are derived from primary email ids, and elapsed time is
// logged rather than returned, so two runs over the same input produce
// identical results.
//
// # Configuration
//
// DefaultConfig holds the standard scoring model. ConfigFromEnv and ApplyEnv
// overlay TRIAGE_* environment variables; see ApplyEnv for the list.
//
// Basic use:
//
//	engine, err := deduplication.NewEngine(deduplication.DefaultConfig())
//	if err != nil {
//	    return fmt.Errorf("failed to create engine: %w", err)
//	}
//	result, err := engine.CrossAnalyze(ctx, emails, tickets)
//	if err != nil {
//	    return err
//	}
//	for _, gm := range result.GroupsWithMatches {
//	    log.Printf("%s: %s (%s)", gm.Group.ID, gm.Recommendation, gm.Reason)
//	}
package deduplication
