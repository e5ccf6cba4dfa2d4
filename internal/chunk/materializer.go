package chunk

//go:generate go tool mockgen -source=materializer.go -destination=mocks/mock_materializer.go -package=mocks

// Materializer turns drained chunk data into a presentation resource and
// frees it again. Both methods are only ever called from the goroutine
// that drains the Manager.
type Materializer interface {
	Materialize(data *ChunkData) (Resource, error)
	Release(res Resource)
}
