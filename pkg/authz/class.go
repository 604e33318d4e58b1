package authz

//go:generate go run github.com/dmarkham/enumer -type ResourceClass -transform kebab -json -yaml -text -output class.gen.go

// ResourceClass groups resources by who may access them.
type ResourceClass int

const (
	Public ResourceClass = iota
	AuthenticatedAny
	AdminOnly
	StudentOnly
)
