// Package paramsrv implements the six built-in parameter services every
// ROS 2 Node exposes under its fully qualified name
// (list_parameters, get_parameters, get_parameter_types, set_parameters,
// set_parameters_atomically, describe_parameters), each mapping 1:1 onto its
// rcl_interfaces request/response type, backed by a mutex-guarded
// Store.
package paramsrv

import (
	"strings"

	"github.com/ros2go/rclgo/rtime"
)

// ParameterType enumerates the tagged-union kinds a ParameterValue can
// carry, matching rcl_interfaces/msg/ParameterType's constants exactly.
type ParameterType uint8

const (
	TypeNotSet ParameterType = iota
	TypeBool
	TypeInteger
	TypeDouble
	TypeString
	TypeByteArray
	TypeBoolArray
	TypeIntegerArray
	TypeDoubleArray
	TypeStringArray
)

// ParameterValue is rcl_interfaces/msg/ParameterValue: a tagged union over
// the ten parameter types, with every field present on the wire (only the
// one matching Type is meaningful, matching the reference layout where
// every arm of the union is a plain struct field rather than an actual
// union).
type ParameterValue struct {
	Type        ParameterType
	BoolValue   bool
	IntValue    int64
	DoubleValue float64
	StringValue string
	ByteArray   []byte
	BoolArray   []bool
	IntArray    []int64
	DoubleArray []float64
	StringArray []string
}

// BoolParam, IntParam, etc. are small constructors for the common case of
// building a ParameterValue from a concrete Go value.
func BoolParam(v bool) ParameterValue     { return ParameterValue{Type: TypeBool, BoolValue: v} }
func IntParam(v int64) ParameterValue     { return ParameterValue{Type: TypeInteger, IntValue: v} }
func DoubleParam(v float64) ParameterValue { return ParameterValue{Type: TypeDouble, DoubleValue: v} }
func StringParam(v string) ParameterValue { return ParameterValue{Type: TypeString, StringValue: v} }

// Parameter is rcl_interfaces/msg/Parameter: a fully qualified name paired
// with its current value.
type Parameter struct {
	Name  string
	Value ParameterValue
}

// ParameterDescriptor is rcl_interfaces/msg/ParameterDescriptor, trimmed to
// the fields this library populates (no range/constraint metadata, since no
// declare_parameter API exists yet to attach them).
type ParameterDescriptor struct {
	Name        string
	Type        ParameterType
	Description string
	ReadOnly    bool
}

// ParameterEvent is rcl_interfaces/msg/ParameterEvent, published on
// rt/parameter_events whenever a Node's parameters change.
type ParameterEvent struct {
	Stamp             rtime.Time
	Node              string
	NewParameters     []Parameter
	ChangedParameters []Parameter
	DeletedParameters []Parameter
}

// SetParametersResult is rcl_interfaces/msg/SetParametersResult.
type SetParametersResult struct {
	Successful bool
	Reason     string
}

// --- service request/response types, one pair per built-in service ---

type ListParametersRequest struct {
	Prefixes []string
	Depth    uint64
}

// DepthRecursive means "no depth limit", matching
// rcl_interfaces/srv/ListParameters's ListParameters.DEPTH_RECURSIVE = 0.
const DepthRecursive uint64 = 0

type ListParametersResult struct {
	Names    []string
	Prefixes []string
}

type ListParametersResponse struct {
	Result ListParametersResult
}

type GetParametersRequest struct {
	Names []string
}

type GetParametersResponse struct {
	Values []ParameterValue
}

type GetParameterTypesRequest struct {
	Names []string
}

type GetParameterTypesResponse struct {
	Types []ParameterType
}

type SetParametersRequest struct {
	Parameters []Parameter
}

type SetParametersResponse struct {
	Results []SetParametersResult
}

type DescribeParametersRequest struct {
	Names []string
}

type DescribeParametersResponse struct {
	Descriptors []ParameterDescriptor
}

// matchesPrefix reports whether name is listed under one of prefixes, at
// any depth (or prefixes is empty, meaning "everything"), following
// ListParameters' own prefix-matching convention: a name matches a prefix
// if it equals the prefix or starts with "prefix.".
func matchesPrefix(name string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if name == p || strings.HasPrefix(name, p+".") {
			return true
		}
	}
	return false
}
