// Package scraper runs the daily news pipeline.
//
// A run takes the cross-process run lock, discovers today's article links
// for each selected category, saves the link snapshot (diffing it against
// the previous one), fetches every article not already stored, and merges
// the results into the article store. Category and per-URL failures are
// logged and reported but do not fail the run.
//
// Usage:
//
//	s, err := scraper.New(cfg, scraper.Deps{
//	    Pages: backend,
//	    Store: store,
//	    Lock:  lock.New(store.LockPath(), log),
//	})
//	if err != nil {
//	    return err
//	}
//
//	ok := s.RunPipeline(ctx, false, []string{"national"}, func(msg string) {
//	    fmt.Println(msg)
//	})
//
// Besides running, a Scraper answers the read-side questions a consumer
// asks: which categories exist, and what is stored for one of them.
package scraper
