// Package names implements the ROS 2 name mapper: parsing and validating
// ROS node, topic, service, and type names, and converting them into the
// exact DDS topic names and type strings a peer ROS 2 participant expects.
//
// Grammar is intentionally a literal port of the validation rules used by
// the reference client (https://design.ros2.org/articles/topic_and_service_names.html),
// not a reimplementation from the design doc, so that edge cases agree byte
// for byte with what real ROS 2 graphs already tolerate.
package names

import (
	"fmt"
	"strings"
)

// NameError is returned by every constructor in this package on invalid
// input. Validation never silently normalizes a bad name; callers always
// get a distinguished error.
type NameError struct {
	Kind NameErrorKind
	// Char is set for KindBadChar.
	Char rune
	// Namespace/Base are set for KindBadSlash.
	Namespace, Base string
}

// NameErrorKind enumerates the ways a name can fail validation.
type NameErrorKind int

const (
	// KindEmpty: base name was empty.
	KindEmpty NameErrorKind = iota
	// KindBadChar: a character outside [A-Za-z0-9_] (or a bad leading
	// character, or a repeated underscore) was found.
	KindBadChar
	// KindBadSlash: a namespace/base pair has slashes in the wrong place
	// (trailing slash, repeated slash, or an otherwise malformed split).
	KindBadSlash
)

func (e *NameError) Error() string {
	switch e.Kind {
	case KindEmpty:
		return "ros2 name: base name must not be empty"
	case KindBadChar:
		return fmt.Sprintf("ros2 name: bad character %q", e.Char)
	case KindBadSlash:
		return fmt.Sprintf("ros2 name: invalid placement of separator slashes, namespace=%q name=%q", e.Namespace, e.Base)
	default:
		return "ros2 name: invalid"
	}
}

func errEmpty() error { return &NameError{Kind: KindEmpty} }
func errBadChar(c rune) error { return &NameError{Kind: KindBadChar, Char: c} }
func errBadSlash(ns, base string) error {
	return &NameError{Kind: KindBadSlash, Namespace: ns, Base: base}
}

func isAsciiAlpha(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAsciiAlnum(c rune) bool {
	return isAsciiAlpha(c) || (c >= '0' && c <= '9')
}

func okStartChar(c rune) bool {
	return isAsciiAlpha(c) || c == '_'
}

// NodeName is the (namespace, base_name) pair that identifies a Node.
type NodeName struct {
	namespace string
	baseName  string
}

// NewNodeName validates and constructs a NodeName. Base must start with a
// letter or underscore and contain only [A-Za-z0-9_]. Namespace, if
// present, starts with a letter or '/' and contains only [A-Za-z0-9_/], and
// must not end in '/' unless it is exactly "/".
func NewNodeName(namespace, baseName string) (NodeName, error) {
	first, _ := firstRune(baseName)
	switch {
	case baseName == "":
		return NodeName{}, errEmpty()
	case okStartChar(first):
		// ok
	default:
		return NodeName{}, errBadChar(first)
	}

	for _, c := range baseName {
		if !(isAsciiAlnum(c) || c == '_') {
			return NodeName{}, errBadChar(c)
		}
	}

	if namespace != "" {
		nsFirst, _ := firstRune(namespace)
		if !(isAsciiAlpha(nsFirst) || nsFirst == '/') {
			return NodeName{}, errBadChar(nsFirst)
		}
	}

	for _, c := range namespace {
		if !(isAsciiAlnum(c) || c == '_' || c == '/') {
			return NodeName{}, errBadChar(c)
		}
	}

	if strings.HasSuffix(namespace, "/") && namespace != "/" {
		return NodeName{}, errBadSlash(namespace, baseName)
	}

	return NodeName{namespace: namespace, baseName: baseName}, nil
}

func firstRune(s string) (rune, int) {
	for _, c := range s {
		return c, 1
	}
	return 0, 0
}

func (n NodeName) Namespace() string { return n.namespace }
func (n NodeName) BaseName() string  { return n.baseName }

// FullyQualifiedName returns namespace + "/" + base_name, without doubling
// the slash for the root namespace "/" (so "/" and "node" give "/node").
func (n NodeName) FullyQualifiedName() string {
	if n.namespace == "/" {
		return n.namespace + n.baseName
	}
	return n.namespace + "/" + n.baseName
}

// Name is a validated topic/service name: a sequence of namespace tokens,
// a base name, and whether the name is absolute.
type Name struct {
	baseName         string
	precedingTokens  []string
	absolute         bool
}

// NewName constructs a Name from a namespace and base name, the way
// Name::new does in the reference client: the namespace may begin with '/'
// (making the Name absolute) and its remaining components are split on
// '/'. Base name must not be empty, must start with a letter or
// underscore, contain only [A-Za-z0-9_], and must not contain "__".
// Namespace components are held to the same rule; an empty namespace
// component (leading/trailing/doubled slash) is a BadSlash error.
func NewName(namespace, baseName string) (Name, error) {
	absolute := false
	nsRel := namespace
	if strings.HasPrefix(namespace, "/") {
		absolute = true
		nsRel = namespace[1:]
	}

	if baseName == "" {
		return Name{}, errEmpty()
	}

	for _, c := range baseName {
		if !(isAsciiAlnum(c) || c == '_') {
			return Name{}, errBadChar(c)
		}
	}
	first, _ := firstRune(baseName)
	if !okStartChar(first) {
		return Name{}, errBadChar(first)
	}
	if strings.Contains(baseName, "__") {
		return Name{}, errBadChar('_')
	}

	var tokens []string
	if nsRel != "" {
		tokens = strings.Split(nsRel, "/")
	}

	for _, tok := range tokens {
		if tok == "" {
			return Name{}, errBadSlash(nsRel, baseName)
		}
	}

	for _, tok := range tokens {
		tf, _ := firstRune(tok)
		if !okStartChar(tf) || strings.Contains(tok, "__") {
			return Name{}, errBadChar('?')
		}
		for _, c := range tok {
			if !(isAsciiAlnum(c) || c == '_') {
				return Name{}, errBadChar('?')
			}
		}
	}

	return Name{baseName: baseName, precedingTokens: tokens, absolute: absolute}, nil
}

// ParseName splits a slash-joined full name into namespace/base and
// delegates to NewName, matching Name::parse exactly (including its
// rejection of trailing and doubled slashes).
func ParseName(fullName string) (Name, error) {
	idx := strings.LastIndex(fullName, "/")
	if idx < 0 {
		return NewName("", fullName)
	}
	prefix, base := fullName[:idx], fullName[idx+1:]

	switch {
	case prefix == "" && base == "":
		return Name{}, errEmpty()
	case base == "":
		return Name{}, errBadSlash(prefix, "")
	case prefix == "":
		return NewName("/", base)
	case strings.HasSuffix(prefix, "/"):
		return Name{}, errBadSlash(prefix, base)
	default:
		return NewName(prefix, base)
	}
}

// IsAbsolute reports whether the name began with '/'.
func (n Name) IsAbsolute() bool { return n.absolute }

// String reconstructs the slash-joined textual form of the name.
func (n Name) String() string {
	var b strings.Builder
	if n.absolute {
		b.WriteByte('/')
	}
	for _, t := range n.precedingTokens {
		b.WriteString(t)
		b.WriteByte('/')
	}
	b.WriteString(n.baseName)
	return b.String()
}

// ToDDSName converts a Name into the DDS topic name ROS 2 uses on the
// wire: kindPrefix (e.g. "rt", "rq", "rr") followed by, for relative
// names, the owning node's namespace, then the name's own tokens, the base
// name, and finally suffix (e.g. "Request", "Reply", or "").
func (n Name) ToDDSName(kindPrefix string, node NodeName, suffix string) string {
	var b strings.Builder
	b.WriteString(kindPrefix)
	if !n.absolute {
		b.WriteString(node.Namespace())
	}
	b.WriteByte('/')
	for _, tok := range n.precedingTokens {
		b.WriteString(tok)
		b.WriteByte('/')
	}
	b.WriteString(n.baseName)
	b.WriteString(suffix)
	return b.String()
}

// Push returns a new Name with new_suffix appended as the base name, the
// previous base name folded into the preceding tokens. Used to build
// action sub-entity names (e.g. "<action>/_action/send_goal") from a base
// action Name.
func (n Name) Push(newSuffix string) Name {
	tokens := make([]string, len(n.precedingTokens)+1)
	copy(tokens, n.precedingTokens)
	tokens[len(n.precedingTokens)] = n.baseName
	return Name{baseName: newSuffix, precedingTokens: tokens, absolute: n.absolute}
}

func slashToColons(s string) string {
	return strings.ReplaceAll(s, "/", "::")
}

// MessageTypeName names a `.msg`-style data type carried over a topic,
// e.g. std_msgs/String.
type MessageTypeName struct {
	prefix      string // "msg" or "action"
	packageName string
	typeName    string
}

// NewMessageTypeName constructs a MessageTypeName with prefix "msg".
func NewMessageTypeName(packageName, typeName string) MessageTypeName {
	return MessageTypeName{prefix: "msg", packageName: packageName, typeName: typeName}
}

func newMessageTypeNamePrefix(packageName, typeName, prefix string) MessageTypeName {
	return MessageTypeName{prefix: prefix, packageName: packageName, typeName: typeName}
}

func (m MessageTypeName) PackageName() string { return m.packageName }
func (m MessageTypeName) TypeName() string    { return m.typeName }

// DDSMsgType returns the DDS wire type string:
// "{package}::{prefix}::dds_::{type}_".
func (m MessageTypeName) DDSMsgType() string {
	return slashToColons(m.packageName + "/" + m.prefix + "/dds_/" + m.typeName + "_")
}

// ServiceTypeName names a service type, e.g. example_interfaces/AddTwoInts.
type ServiceTypeName struct {
	prefix string // "srv" or "action"
	msg    MessageTypeName
}

// NewServiceTypeName constructs a ServiceTypeName with prefix "srv".
func NewServiceTypeName(packageName, typeName string) ServiceTypeName {
	return ServiceTypeName{prefix: "srv", msg: NewMessageTypeName(packageName, typeName)}
}

func newServiceTypeNamePrefix(packageName, typeName, prefix string) ServiceTypeName {
	return ServiceTypeName{prefix: prefix, msg: NewMessageTypeName(packageName, typeName)}
}

func (s ServiceTypeName) PackageName() string { return s.msg.PackageName() }
func (s ServiceTypeName) TypeName() string    { return s.msg.TypeName() }

// DDSRequestType returns "{package}::{prefix}::dds_::{type}_Request_".
func (s ServiceTypeName) DDSRequestType() string {
	return slashToColons(s.PackageName() + "/" + s.prefix + "/dds_/" + s.TypeName() + "_Request_")
}

// DDSResponseType returns "{package}::{prefix}::dds_::{type}_Response_".
func (s ServiceTypeName) DDSResponseType() string {
	return slashToColons(s.PackageName() + "/" + s.prefix + "/dds_/" + s.TypeName() + "_Response_")
}

// ActionTypeName names an action type, e.g. example_interfaces/Fibonacci.
type ActionTypeName struct {
	msg MessageTypeName
}

// NewActionTypeName constructs an ActionTypeName.
func NewActionTypeName(packageName, typeName string) ActionTypeName {
	return ActionTypeName{msg: NewMessageTypeName(packageName, typeName)}
}

func (a ActionTypeName) PackageName() string { return a.msg.PackageName() }
func (a ActionTypeName) TypeName() string    { return a.msg.TypeName() }

// DDSActionTopic returns the MessageTypeName for one of the action's
// topic-shaped sub-entities (feedback, status), e.g. topic="_FeedbackMessage".
func (a ActionTypeName) DDSActionTopic(topic string) MessageTypeName {
	return newMessageTypeNamePrefix(a.PackageName(), a.TypeName()+topic, "action")
}

// DDSActionService returns the ServiceTypeName for one of the action's
// service-shaped sub-entities (send_goal, cancel_goal, get_result).
func (a ActionTypeName) DDSActionService(srv string) ServiceTypeName {
	return newServiceTypeNamePrefix(a.PackageName(), a.TypeName()+srv, "action")
}
