package knowledge

// RetrievedContext is a stored chunk returned for a query.
type RetrievedContext struct {
	ID            string
	Source        string
	Index         int
	Content       string
	Score         float64
	TokenEstimate int
	Metadata      map[string]any
}
