package commands

import (
	"strings"
	"time"

	"github.com/bt-conformance/ptsproxy/api/errorkinds"
	"github.com/bt-conformance/ptsproxy/stack/internal/serde"
	"github.com/ugorji/go/codec"
)

// ExecuteFunc submits command parameters to the session and returns the
// channel its reply will arrive on.
type ExecuteFunc func(params []string) (chan Reply, error)

// ArgumentMap holds a command's named parameters.
type ArgumentMap = map[Argument]string

// NoResult marks commands that return only errors.
type NoResult = struct{}

// Command is a single RPC command against the IUT stack. T is the type of
// its decoded result.
type Command[T any] struct {
	cmd    string
	argmap ArgumentMap
}

// Reply is the stack's reply envelope for one request.
type Reply struct {
	Status    string      `json:"status"`
	RequestId int64       `json:"request_id,omitempty"`
	Error     RemoteError `json:"error"`
	Data      codec.Raw   `json:"data"`
}

// RemoteError is a structured error reported by the stack.
type RemoteError struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

func (e RemoteError) Error() string {
	sb := strings.Builder{}

	sb.WriteString(e.Name)
	sb.WriteString(": ")
	if e.Description == "" {
		sb.WriteString("no further information")
	} else {
		sb.WriteString(e.Description)
	}

	if len(e.Metadata) > 0 {
		values := make([]string, 0, len(e.Metadata))
		for _, v := range e.Metadata {
			values = append(values, v)
		}

		sb.WriteString(" (")
		sb.WriteString(strings.Join(values, ", "))
		sb.WriteString(")")
	}

	return sb.String()
}

func (c *Command[T]) String() string {
	sb := strings.Builder{}
	sb.Grow(len(c.cmd) + (len(c.argmap) * 2))

	sb.WriteString(c.cmd)
	for param, value := range c.argmap {
		sb.WriteString(" ")
		sb.WriteString(string(param))
		sb.WriteString(" ")
		sb.WriteString(value)
	}

	return sb.String()
}

func (c *Command[T]) Slice() []string {
	return strings.Split(c.String(), " ")
}

func (c *Command[T]) WithArgument(arg Argument, value string) *Command[T] {
	if c.argmap == nil {
		c.argmap = make(ArgumentMap)
	}

	c.argmap[arg] = value

	return c
}

func (c *Command[T]) WithArguments(fn func(ArgumentMap)) *Command[T] {
	if c.argmap == nil {
		c.argmap = make(ArgumentMap)
	}

	fn(c.argmap)

	return c
}

// ExecuteWith submits the command through fn and waits for its decoded
// reply. The reply payload is keyed by the result's name; the single value
// is returned.
func (c *Command[T]) ExecuteWith(fn ExecuteFunc, timeout time.Duration) (T, error) {
	var result T

	replyChan, err := fn(c.Slice())
	if err != nil {
		return result, err
	}

	select {
	case reply, ok := <-replyChan:
		if !ok {
			return result, errorkinds.ErrSessionClosed
		}

		if reply.Status == "error" {
			return result, reply.Error
		}

		if len(reply.Data) > 0 {
			decoded := make(map[string]T, 1)
			if err := serde.Unmarshal(reply.Data, &decoded); err != nil {
				return result, err
			}

			for _, v := range decoded {
				result = v
			}
		}

		return result, nil

	case <-time.After(timeout):
		return result, errorkinds.ErrReplyTimeout
	}
}
