package scene

// Graph holds the active scene. It is owned by the host's update loop and
// is not safe for concurrent use.
type Graph struct {
	name       string
	root       *Node
	generation uint64

	nextID    int
	listeners []listener
}

type listener struct {
	id int
	fn func(name string)
}

// NewGraph returns a graph with an empty, unnamed scene.
func NewGraph() *Graph {
	return &Graph{root: NewRoot("")}
}

// Root returns the active scene's container node.
func (g *Graph) Root() *Node { return g.root }

// Name returns the active scene's name.
func (g *Graph) Name() string { return g.name }

// Generation increments on every Load, including reloads of the same scene.
func (g *Graph) Generation() uint64 { return g.generation }

// Load replaces the active scene and notifies load listeners.
func (g *Graph) Load(name string, root *Node) {
	if root == nil {
		root = NewRoot(name)
	}
	root.root = true
	g.name = name
	g.root = root
	g.generation++

	ls := make([]listener, len(g.listeners))
	copy(ls, g.listeners)
	for _, l := range ls {
		l.fn(name)
	}
}

// OnLoad registers fn to run after every Load. The returned func removes it.
func (g *Graph) OnLoad(fn func(name string)) func() {
	g.nextID++
	id := g.nextID
	g.listeners = append(g.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range g.listeners {
			if l.id == id {
				g.listeners = append(g.listeners[:i], g.listeners[i+1:]...)
				return
			}
		}
	}
}

// Walk visits every node of the active scene below the container.
func (g *Graph) Walk(fn func(*Node) bool) {
	for _, c := range g.root.children {
		if !Walk(c, fn) {
			return
		}
	}
}

// Find returns the first node named name in the active scene.
func (g *Graph) Find(name string) *Node {
	return g.root.Find(name)
}
