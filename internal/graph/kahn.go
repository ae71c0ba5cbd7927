package graph

import (
	"container/list"
	"errors"
	"fmt"
	"strings"
)

// ProcessingQueue wraps a list-based queue for Kahn's algorithm processing.
// It holds relations that are ready to be scheduled (in-degree of 0).
type ProcessingQueue struct {
	queue *list.List
}

// NewProcessingQueue creates a new empty processing queue.
func NewProcessingQueue() *ProcessingQueue {
	return &ProcessingQueue{
		queue: list.New(),
	}
}

// InitializeQueue creates a processing queue populated with all relations
// that have in-degree of 0 (no dependencies). Relations enter the queue in
// registration order, which is what makes the resulting sort deterministic.
func (g *Graph) InitializeQueue(inDegree map[string]int) *ProcessingQueue {
	pq := NewProcessingQueue()

	for el := g.nodes.Front(); el != nil; el = el.Next() {
		if inDegree[el.Key] == 0 {
			pq.Enqueue(el.Key)
		}
	}

	return pq
}

// Enqueue adds a relation to the back of the queue.
func (pq *ProcessingQueue) Enqueue(node string) {
	pq.queue.PushBack(node)
}

// Dequeue removes and returns the relation at the front of the queue.
// Returns empty string and false if the queue is empty.
func (pq *ProcessingQueue) Dequeue() (string, bool) {
	if pq.queue.Len() == 0 {
		return "", false
	}
	elem := pq.queue.Front()
	pq.queue.Remove(elem)
	return elem.Value.(string), true
}

// Len returns the number of relations in the queue.
func (pq *ProcessingQueue) Len() int {
	return pq.queue.Len()
}

// IsEmpty returns true if the queue has no relations.
func (pq *ProcessingQueue) IsEmpty() bool {
	return pq.queue.Len() == 0
}

// CalculateInDegrees computes the number of incoming edges for each relation
// in the graph. This is the first step of Kahn's algorithm for topological
// sorting. Returns a map of relation name -> in-degree count.
func (g *Graph) CalculateInDegrees() map[string]int {
	inDegree := make(map[string]int, g.nodes.Len())

	// Initialize all relations with 0
	for el := g.nodes.Front(); el != nil; el = el.Next() {
		inDegree[el.Key] = 0
	}

	// Count incoming edges by iterating through all child relationships
	for _, children := range g.children {
		for _, child := range children {
			inDegree[child]++
		}
	}

	return inDegree
}

// GetZeroInDegreeNodes returns all relations with in-degree of 0 in
// registration order. These are the starting points for Kahn's algorithm.
func (g *Graph) GetZeroInDegreeNodes(inDegree map[string]int) []string {
	var nodes []string
	for el := g.nodes.Front(); el != nil; el = el.Next() {
		if inDegree[el.Key] == 0 {
			nodes = append(nodes, el.Key)
		}
	}
	return nodes
}

// ErrCycleDetected is returned when the dependency graph contains a cycle,
// making topological ordering impossible.
var ErrCycleDetected = errors.New("cycle detected in dependency graph")

// CycleInfo contains information about incomplete processing due to cycles.
type CycleInfo struct {
	TotalNodes        int      // Total number of relations in the graph
	ProcessedNodes    int      // Number of relations successfully ordered
	UnprocessedNodes  []string // Relations that could not be ordered (part of or blocked by cycle)
	CycleParticipants []string // Relations that are actually part of a cycle (subset of UnprocessedNodes)
	CyclePath         []string // Ordered path showing the cycle (e.g., [A, B, C, A])
}

// CycleError represents a cycle detection error with detailed information
// about which relations are involved and which are blocked by the cycle.
type CycleError struct {
	Info *CycleInfo
}

// Error implements the error interface with a descriptive message that
// includes the relations in the cycle and any relations blocked by it.
func (e *CycleError) Error() string {
	msg := fmt.Sprintf("cycle detected in dependency graph: %d of %d units could not be ordered",
		len(e.Info.UnprocessedNodes), e.Info.TotalNodes)

	// Show the cycle path if available
	if len(e.Info.CyclePath) > 0 {
		msg += fmt.Sprintf("\nCycle path: %s", strings.Join(e.Info.CyclePath, " -> "))
	}

	// List relations that are actually part of the cycle
	if len(e.Info.CycleParticipants) > 0 {
		msg += fmt.Sprintf("\nUnits in cycle: %s", strings.Join(e.Info.CycleParticipants, ", "))
	}

	// List relations that are blocked by the cycle but not part of it
	if len(e.Info.UnprocessedNodes) > len(e.Info.CycleParticipants) {
		participantSet := make(map[string]bool)
		for _, p := range e.Info.CycleParticipants {
			participantSet[p] = true
		}

		var blocked []string
		for _, u := range e.Info.UnprocessedNodes {
			if !participantSet[u] {
				blocked = append(blocked, u)
			}
		}

		if len(blocked) > 0 {
			msg += fmt.Sprintf("\nUnits blocked by cycle: %s", strings.Join(blocked, ", "))
		}
	}

	return msg
}

// Unwrap makes errors.Is(err, ErrCycleDetected) work on CycleError values.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// DetectIncompleteProcessing runs Kahn's algorithm and returns information
// about any relations that could not be ordered. If all relations are
// ordered, returns nil (no cycle). Useful for diagnosing dependency issues.
func (g *Graph) DetectIncompleteProcessing() *CycleInfo {
	inDegree := g.CalculateInDegrees()
	queue := g.InitializeQueue(inDegree)

	processed := make(map[string]bool)

	// Process all reachable relations
	for !queue.IsEmpty() {
		node, _ := queue.Dequeue()
		processed[node] = true

		for _, child := range g.GetChildren(node) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}

	// Check if all relations were processed
	if len(processed) == g.nodes.Len() {
		return nil // No cycle detected
	}

	// Collect unprocessed relations in registration order
	var unprocessed []string
	for el := g.nodes.Front(); el != nil; el = el.Next() {
		if !processed[el.Key] {
			unprocessed = append(unprocessed, el.Key)
		}
	}

	// Build unprocessed set for cycle participant detection
	unprocessedSet := make(map[string]bool)
	for _, node := range unprocessed {
		unprocessedSet[node] = true
	}

	// Find actual cycle participants
	var cycleParticipants []string
	for _, node := range unprocessed {
		if g.canReachSelfInSet(node, unprocessedSet) {
			cycleParticipants = append(cycleParticipants, node)
		}
	}

	// Find the actual cycle path for better error messages
	var cyclePath []string
	if len(cycleParticipants) > 0 {
		cyclePath = g.FindCyclePath(cycleParticipants[0], unprocessedSet)
	}

	return &CycleInfo{
		TotalNodes:        g.nodes.Len(),
		ProcessedNodes:    len(processed),
		UnprocessedNodes:  unprocessed,
		CycleParticipants: cycleParticipants,
		CyclePath:         cyclePath,
	}
}

// HasCycle returns true if the dependency graph contains a cycle.
// This is a convenience method that wraps DetectIncompleteProcessing.
func (g *Graph) HasCycle() bool {
	return g.DetectIncompleteProcessing() != nil
}

// FindCycleParticipants identifies relations that are actually part of a
// cycle. Unlike UnprocessedNodes, which includes relations blocked by
// cycles, this returns only relations that form the cycle itself.
func (g *Graph) FindCycleParticipants() []string {
	cycleInfo := g.DetectIncompleteProcessing()
	if cycleInfo == nil {
		return nil // No cycles
	}

	unprocessedSet := make(map[string]bool)
	for _, node := range cycleInfo.UnprocessedNodes {
		unprocessedSet[node] = true
	}

	// A relation is a cycle participant if there is a path back to itself
	// within the unprocessed subgraph.
	var result []string
	for _, startNode := range cycleInfo.UnprocessedNodes {
		if g.canReachSelf(startNode, unprocessedSet) {
			result = append(result, startNode)
		}
	}

	return result
}

// FindCyclePath finds the actual path that forms a cycle starting from the
// given relation. Returns the ordered list of relations forming the cycle
// (including the start relation at both ends).
func (g *Graph) FindCyclePath(start string, allowedNodes map[string]bool) []string {
	visited := make(map[string]bool)
	path := []string{start}

	if g.dfsFindPath(start, start, visited, allowedNodes, &path) {
		return path
	}

	return nil
}

// dfsFindPath performs DFS to find a path back to the target relation.
// Returns true if a path is found, and populates the path slice via pointer.
func (g *Graph) dfsFindPath(current, target string, visited, allowedNodes map[string]bool, path *[]string) bool {
	for _, child := range g.GetChildren(current) {
		// Skip if not in allowed set
		if !allowedNodes[child] {
			continue
		}

		// Found path back to target, append target to complete the cycle
		if child == target {
			*path = append(*path, target)
			return true
		}

		// Skip if already visited
		if visited[child] {
			continue
		}

		// Mark as visited and recurse
		visited[child] = true
		*path = append(*path, child)

		if g.dfsFindPath(child, target, visited, allowedNodes, path) {
			return true
		}

		// Backtrack
		*path = (*path)[:len(*path)-1]
	}

	return false
}

// canReachSelf checks if a relation can reach itself through the subgraph
// defined by the allowedNodes set. Uses DFS with path tracking.
func (g *Graph) canReachSelf(start string, allowedNodes map[string]bool) bool {
	visited := make(map[string]bool)
	return g.dfsCanReach(start, start, visited, allowedNodes, true)
}

// canReachSelfInSet is an alias for canReachSelf for clarity in different contexts.
func (g *Graph) canReachSelfInSet(start string, nodeSet map[string]bool) bool {
	return g.canReachSelf(start, nodeSet)
}

// dfsCanReach performs DFS to check if we can reach the target relation.
// isStart is true only for the initial call to avoid immediate self-match.
func (g *Graph) dfsCanReach(current, target string, visited, allowedNodes map[string]bool, isStart bool) bool {
	// Found a path back to start (but not on first call)
	if current == target && !isStart {
		return true
	}

	// Skip if already visited or not in allowed set
	if visited[current] {
		return false
	}
	if !allowedNodes[current] {
		return false
	}

	visited[current] = true

	for _, child := range g.GetChildren(current) {
		if g.dfsCanReach(child, target, visited, allowedNodes, false) {
			return true
		}
	}

	return false
}

// TopologicalSort returns relations in topological order using Kahn's
// algorithm. Parents appear before children, and ties between ready
// relations resolve by registration order, so the result is stable across
// runs. Returns a CycleError if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	// Step 1: Calculate in-degrees for all relations
	inDegree := g.CalculateInDegrees()

	// Step 2: Initialize queue with all zero in-degree relations
	queue := g.InitializeQueue(inDegree)

	var result []string
	processed := 0

	// Step 3: Process relations iteratively
	for !queue.IsEmpty() {
		node, _ := queue.Dequeue()

		// This relation has all dependencies satisfied
		result = append(result, node)
		processed++

		// Decrement in-degrees of all children. When a child's in-degree
		// becomes 0, add it to the queue.
		for _, child := range g.GetChildren(node) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}

	// Step 4: Check for cycles. If we did not process all relations,
	// there must be one.
	if processed != g.nodes.Len() {
		cycleInfo := g.DetectIncompleteProcessing()
		return nil, &CycleError{Info: cycleInfo}
	}

	return result, nil
}

// LoadOrder returns the order in which relations should be loaded. Parent
// relations come first so that foreign key references resolve as child rows
// arrive. This is the topological order of the dependency graph.
func (g *Graph) LoadOrder() ([]string, error) {
	return g.TopologicalSort()
}

// TruncateOrder returns the order in which relations should be emptied
// before a clean reload. Child relations come first so that no foreign key
// is left dangling part-way through. This is the reverse topological order.
func (g *Graph) TruncateOrder() ([]string, error) {
	loadOrder, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	truncateOrder := make([]string, len(loadOrder))
	for i, name := range loadOrder {
		truncateOrder[len(loadOrder)-1-i] = name
	}

	return truncateOrder, nil
}

// Validate checks the graph for structural issues such as cycles. This
// should be called after building the graph to fail fast at startup rather
// than discovering issues mid-load.
// Returns a CycleError if the graph contains cycles, nil otherwise.
func (g *Graph) Validate() error {
	cycleInfo := g.DetectIncompleteProcessing()
	if cycleInfo != nil {
		return &CycleError{Info: cycleInfo}
	}

	return nil
}
