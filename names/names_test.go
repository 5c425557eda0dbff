package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewName(t *testing.T) {
	_, err := NewName("", "")
	assert.Error(t, err)

	_, err = NewName("", "/")
	assert.Error(t, err)

	_, err = NewName("a", "b")
	assert.NoError(t, err)

	_, err = NewName("a", "_b")
	assert.NoError(t, err)

	_, err = NewName("a", "b_b")
	assert.NoError(t, err)

	_, err = NewName("a", "b__b")
	assert.Error(t, err, "must not contain repeated underscores")

	_, err = NewName("a2//a", "b")
	assert.Error(t, err, "must not contain repeated forward slashes")
}

func TestParseName(t *testing.T) {
	_, err := ParseName("")
	assert.Error(t, err)

	_, err = ParseName("/")
	assert.Error(t, err)

	_, err = ParseName("a/")
	assert.Error(t, err)

	_, err = ParseName("a/b/")
	assert.Error(t, err)

	_, err = ParseName("2/a")
	assert.Error(t, err)

	_, err = ParseName("a2/a")
	assert.NoError(t, err)

	_, err = ParseName("_a2/a")
	assert.NoError(t, err)

	_, err = ParseName("some_name/a")
	assert.NoError(t, err)

	_, err = ParseName("__a2/a")
	assert.Error(t, err)

	_, err = ParseName("a2//a")
	assert.Error(t, err)

	got, err := ParseName("a/nn")
	require.NoError(t, err)
	want, err := NewName("a", "nn")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ParseName("a/b/c/nn")
	require.NoError(t, err)
	want, err = NewName("a/b/c", "nn")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ParseName("/a/b/c/nn")
	require.NoError(t, err)
	want, err = NewName("/a/b/c", "nn")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ParseName("a/nn")
	require.NoError(t, err)
	assert.False(t, got.IsAbsolute())

	got, err = ParseName("/a/nn")
	require.NoError(t, err)
	assert.True(t, got.IsAbsolute())
}

func TestNameToDDSName(t *testing.T) {
	node, err := NewNodeName("/ns", "node")
	require.NoError(t, err)

	n, err := NewName("/", "clock")
	require.NoError(t, err)
	assert.Equal(t, "rt/clock", n.ToDDSName("rt", node, ""))

	n, err = NewName("", "topic")
	require.NoError(t, err)
	assert.Equal(t, "rt/ns/topic", n.ToDDSName("rt", node, ""))
}

func TestMessageTypeNameDDSMsgType(t *testing.T) {
	m := NewMessageTypeName("std_msgs", "String")
	assert.Equal(t, "std_msgs::msg::dds_::String_", m.DDSMsgType())
}

func TestServiceTypeNameDDSTypes(t *testing.T) {
	s := NewServiceTypeName("example_interfaces", "AddTwoInts")
	assert.Equal(t, "example_interfaces::srv::dds_::AddTwoInts_Request_", s.DDSRequestType())
	assert.Equal(t, "example_interfaces::srv::dds_::AddTwoInts_Response_", s.DDSResponseType())
}

func TestActionTypeNameDDSSubEntities(t *testing.T) {
	a := NewActionTypeName("example_interfaces", "Fibonacci")
	svc := a.DDSActionService("_SendGoal")
	assert.Equal(t, "example_interfaces::action::dds_::Fibonacci_SendGoal_Request_", svc.DDSRequestType())

	topic := a.DDSActionTopic("_FeedbackMessage")
	assert.Equal(t, "example_interfaces::action::dds_::Fibonacci_FeedbackMessage_", topic.DDSMsgType())
}

func TestNodeNameNamespaceRules(t *testing.T) {
	_, err := NewNodeName("/ns/", "node")
	assert.Error(t, err, "namespace must not end in slash unless it is exactly /")

	n, err := NewNodeName("/", "node")
	require.NoError(t, err)
	assert.Equal(t, "/node", n.FullyQualifiedName())
}
