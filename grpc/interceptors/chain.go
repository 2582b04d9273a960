package interceptors

import (
	"slices"

	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"google.golang.org/grpc"
)

// UnaryServerInterceptorChain is an ordered, named list of unary server interceptors.
// It is not safe for concurrent use and is meant to be assembled once at startup.
type UnaryServerInterceptorChain struct {
	order []string
	items map[string]grpc.UnaryServerInterceptor
}

// NewUnaryServerInterceptorChain constructs an empty chain.
func NewUnaryServerInterceptorChain() *UnaryServerInterceptorChain {
	return &UnaryServerInterceptorChain{
		items: make(map[string]grpc.UnaryServerInterceptor),
	}
}

func (c *UnaryServerInterceptorChain) Exists(id string) bool {
	_, ok := c.items[id]
	return ok
}

// IDs returns the interceptor ids, outermost first.
func (c *UnaryServerInterceptorChain) IDs() []string {
	return slices.Clone(c.order)
}

// Push appends an interceptor. It returns false when the id is already taken.
//
//	Push("b", <inter>)
//	Before: a
//	After: a -> b
func (c *UnaryServerInterceptorChain) Push(id string, inter grpc.UnaryServerInterceptor) bool {
	if c.Exists(id) {
		return false
	}
	c.items[id] = inter
	c.order = append(c.order, id)
	return true
}

// InsertAfter inserts an interceptor right after afterID.
//
//	InsertAfter("a", "c", <inter>)
//	Before: a -> b
//	After: a -> c -> b
func (c *UnaryServerInterceptorChain) InsertAfter(afterID, id string, inter grpc.UnaryServerInterceptor) bool {
	return c.insert(afterID, 1, id, inter)
}

// InsertBefore inserts an interceptor right before beforeID.
//
//	InsertBefore("b", "c", <inter>)
//	Before: a -> b
//	After: a -> c -> b
func (c *UnaryServerInterceptorChain) InsertBefore(beforeID, id string, inter grpc.UnaryServerInterceptor) bool {
	return c.insert(beforeID, 0, id, inter)
}

func (c *UnaryServerInterceptorChain) insert(anchor string, offset int, id string, inter grpc.UnaryServerInterceptor) bool {
	if c.Exists(id) || !c.Exists(anchor) {
		return false
	}
	index := slices.Index(c.order, anchor) + offset
	c.order = slices.Insert(c.order, index, id)
	c.items[id] = inter
	return true
}

// Delete removes an interceptor.
func (c *UnaryServerInterceptorChain) Delete(id string) bool {
	if !c.Exists(id) {
		return false
	}
	c.order = slices.DeleteFunc(c.order, func(s string) bool { return s == id })
	delete(c.items, id)
	return true
}

// Replace swaps the interceptor registered under id, keeping its position.
func (c *UnaryServerInterceptorChain) Replace(id string, inter grpc.UnaryServerInterceptor) bool {
	if !c.Exists(id) {
		return false
	}
	c.items[id] = inter
	return true
}

// Commit builds a single interceptor running the chain in order.
func (c *UnaryServerInterceptorChain) Commit() grpc.UnaryServerInterceptor {
	chained := make([]grpc.UnaryServerInterceptor, 0, len(c.order))
	for _, id := range c.order {
		chained = append(chained, c.items[id])
	}
	return grpcmiddleware.ChainUnaryServer(chained...)
}
