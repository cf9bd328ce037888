package bridge

import (
	"math"

	"github.com/dmarienko/kdbml/pkg/kdbmlerrors"
	"github.com/dmarienko/kdbml/pkg/mx"
)

// Identifiers carried by validation errors in the "id" detail.
const (
	IDGeneric           = "kdbml"
	IDInputNotStruct    = "qdbc:inputNotStruct"
	IDEmptyQuery        = "qdbc:emptyQuery"
	IDFieldNotSpecified = "qdbc:FieldNotSpecified"
)

// Args are the validated inputs of one call.
type Args struct {
	Query string
	Host  string
	Port  int
}

func invalid(id, msg string) error {
	return kdbmlerrors.New(kdbmlerrors.ErrorTypeValidation, msg).WithID(id)
}

// ParseArgs extracts the query and the connection target from the host
// calling convention: args[0] is a struct with host and port fields, args[1]
// is the query as a char array. Checks run in a fixed order and the first
// failure is returned.
func ParseArgs(args ...mx.Array) (Args, error) {
	if len(args) < 2 {
		return Args{}, invalid(IDGeneric, "Two inputs required.")
	}
	target, ok := args[0].(*mx.StructArray)
	if !ok {
		return Args{}, invalid(IDInputNotStruct, "Input must be a structure.")
	}

	if args[1] == nil || args[1].Len() == 0 {
		return Args{}, invalid(IDEmptyQuery, "Query can't be empty")
	}
	query, ok := args[1].(*mx.CharArray)
	if !ok {
		return Args{}, invalid(IDGeneric, "Query must be a character array.")
	}

	host, ok := target.Field("host")
	if !ok || host == nil {
		return Args{}, invalid(IDFieldNotSpecified, "Can't find 'host' field in structure")
	}
	hostChars, ok := host.(*mx.CharArray)
	if !ok {
		return Args{}, invalid(IDGeneric, "Field 'host' must be a character array.")
	}

	portField, ok := target.Field("port")
	if !ok || portField == nil {
		return Args{}, invalid(IDFieldNotSpecified, "Can't find 'port' field in structure")
	}
	port, err := parsePort(portField)
	if err != nil {
		return Args{}, err
	}

	return Args{Query: query.String(), Host: hostChars.String(), Port: port}, nil
}

func parsePort(a mx.Array) (int, error) {
	d, ok := a.(*mx.DoubleArray)
	if !ok {
		return 0, invalid(IDGeneric, "Field 'port' must be a numeric scalar.")
	}
	p, ok := d.Scalar()
	if !ok {
		return 0, invalid(IDGeneric, "Field 'port' must be a numeric scalar.")
	}
	if p != math.Trunc(p) || p < 1 || p > math.MaxUint16 {
		return 0, invalid(IDGeneric, "Field 'port' must be an integer in 1..65535.")
	}
	return int(p), nil
}
