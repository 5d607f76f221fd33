package clnet

// ForwardToServer sends a console command the client does not know
// to the server as a string command. Commands bound to keys, which
// start with + or -, are never sent.
func (c *Client) ForwardToServer(args Args) {
	cmd := args.Argv(0)

	if c.state < StateConnected || cmd == "" || cmd[0] == '-' || cmd[0] == '+' {
		c.Printf("Unknown command \"%s\"\n", cmd)
		return
	}

	m := c.netchan.Message
	m.WriteByte(ClcStringCmd)
	m.Print(cmd)

	if args.Argc() > 1 {
		m.Print(" ")
		m.Print(args.Args())
	}
}

// ForwardRawTail sends the arguments of a command, without the
// command name, to the server as a string command.
func (c *Client) ForwardRawTail(args Args) {
	if c.state != StateConnected && c.state != StateActive {
		c.Printf("Can't \"%s\", not connected\n", args.Argv(0))
		return
	}

	if args.Argc() > 1 {
		c.netchan.Message.WriteByte(ClcStringCmd)
		c.netchan.Message.Print(args.Args())
	}
}
