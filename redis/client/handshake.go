package client

import "strconv"

// stage is one handshake command, skipped entirely when its triggering
// option is unset.
type stage struct {
	name string
	args [][]byte
}

func b(s string) []byte { return []byte(s) }

// handshakeStages builds the ordered stage list from spec.md §4.12:
//
//	AUTH -> SETNAME -> SELECT -> READONLY -> TRACKING
//	     -> LIBNAME -> LIBVER -> NOEVICT -> NOTOUCH -> USER
//
// For protover=3 with a password, the whole sequence collapses to a single
// HELLO 3 AUTH ... [SETNAME ...] stage.
func (o Options) handshakeStages() []stage {
	if o.ProtoVer == 3 && o.Password != "" {
		user := o.Username
		if user == "" {
			user = "default"
		}
		args := [][]byte{b("HELLO"), b("3"), b("AUTH"), b(user), b(o.Password)}
		if o.ClientName != "" {
			args = append(args, b("SETNAME"), b(o.ClientName))
		}
		return []stage{{name: "HELLO", args: args}}
	}

	var stages []stage
	if o.Password != "" {
		args := [][]byte{b("AUTH")}
		if o.Username != "" {
			args = append(args, b(o.Username))
		}
		args = append(args, b(o.Password))
		stages = append(stages, stage{"AUTH", args})
	}
	if o.ClientName != "" {
		stages = append(stages, stage{"SETNAME", [][]byte{b("CLIENT"), b("SETNAME"), b(o.ClientName)}})
	}
	if o.DB != 0 {
		stages = append(stages, stage{"SELECT", [][]byte{b("SELECT"), b(strconv.Itoa(o.DB))}})
	}
	if o.Readonly {
		stages = append(stages, stage{"READONLY", [][]byte{b("READONLY")}})
	}
	if o.Tracking {
		stages = append(stages, stage{"TRACKING", [][]byte{b("CLIENT"), b("TRACKING"), b("ON")}})
	}
	if o.LibName != "" {
		stages = append(stages, stage{"LIBNAME", [][]byte{b("CLIENT"), b("SETINFO"), b("lib-name"), b(o.LibName)}})
	}
	if o.LibVer != "" {
		stages = append(stages, stage{"LIBVER", [][]byte{b("CLIENT"), b("SETINFO"), b("lib-ver"), b(o.LibVer)}})
	}
	if o.NoEvict {
		stages = append(stages, stage{"NOEVICT", [][]byte{b("CLIENT"), b("NO-EVICT"), b("ON")}})
	}
	if o.NoTouch {
		stages = append(stages, stage{"NOTOUCH", [][]byte{b("CLIENT"), b("NO-TOUCH"), b("ON")}})
	}
	for _, c := range o.ExtraStages {
		stages = append(stages, stage{"USER", c.Args})
	}
	return stages
}

// HandshakeError reports which stage of the handshake failed and the
// server's error message.
type HandshakeError struct {
	Stage   string
	Message string
}

func (e *HandshakeError) Error() string {
	return "redis: handshake stage " + e.Stage + " failed: " + e.Message
}
