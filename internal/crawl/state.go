// Package crawl implements breadth-first product-page discovery bounded
// to the target domain.
package crawl

// State is the single-owner crawl state: the visited set, the FIFO
// frontier, and the ordered set of URLs classified as product pages. It is
// passed into and returned from the crawl step, never held as ambient
// globals, so a later parallel or resumable crawl can own it explicitly.
// It is process-scoped and discarded at run end.
type State struct {
	visited     map[string]struct{}
	frontier    []string
	productSeen map[string]struct{}
	products    []string
}

// NewState creates an empty crawl state.
func NewState() *State {
	return &State{
		visited:     map[string]struct{}{},
		productSeen: map[string]struct{}{},
	}
}

// MarkVisited records url as visited and reports whether it was new.
// Re-encountering a visited URL is a no-op, which guarantees termination
// on cyclic link graphs.
func (s *State) MarkVisited(url string) bool {
	if _, ok := s.visited[url]; ok {
		return false
	}
	s.visited[url] = struct{}{}
	return true
}

// Visited reports whether url has been visited.
func (s *State) Visited(url string) bool {
	_, ok := s.visited[url]
	return ok
}

// Enqueue appends url to the frontier.
func (s *State) Enqueue(url string) {
	s.frontier = append(s.frontier, url)
}

// Dequeue pops the next frontier URL in FIFO order.
func (s *State) Dequeue() (string, bool) {
	if len(s.frontier) == 0 {
		return "", false
	}
	url := s.frontier[0]
	s.frontier = s.frontier[1:]
	return url, true
}

// AddProduct records a product-page URL, preserving first-seen order.
func (s *State) AddProduct(url string) {
	if _, ok := s.productSeen[url]; ok {
		return
	}
	s.productSeen[url] = struct{}{}
	s.products = append(s.products, url)
}

// ProductURLs returns the classified product-page URLs in discovery order.
func (s *State) ProductURLs() []string {
	return append([]string(nil), s.products...)
}

// VisitedCount returns the number of visited URLs.
func (s *State) VisitedCount() int { return len(s.visited) }
