// Package storage persists pipeline state under the data directory.
//
// LinkStore keeps the per-category URL snapshots (today_links.json,
// previous_links.json, links_meta.json) and reports what changed since the
// last discovery run. ArticleStore keeps the cumulative article collection
// (articles.json, articles_meta.json) and merges fetch results into it,
// replacing rather than duplicating a re-fetched URL.
//
// Every write goes through WriteJSONAtomic, so a crash mid-write leaves the
// previous file intact. Unreadable files are treated as empty state.
package storage
