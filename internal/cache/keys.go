package cache

// Only the unfiltered views are cached; date-filtered queries go straight to
// the database. Keeping the key set enumerable makes invalidation a plain
// delete on event mutation and check-in.
const (
	KeyEventsListAll = "events:list:v1:all"
	KeyEventsStats   = "events:stats:v1:past"
)
