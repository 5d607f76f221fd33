package clnet

// registerCommands adds the connection commands to the console.
func (c *Client) registerCommands() {
	con := c.console

	con.Register("connect", "connect <server>", func(args Args) {
		if args.Argc() != 2 {
			c.Printf("usage: connect <server>\n")
			return
		}

		if err := c.Connect(args.Argv(1)); err != nil {
			c.Printf("usage: connect <server>\n")
		}
	})

	con.Register("reconnect", "reconnect to the last server", func(Args) {
		c.Reconnect()
	})

	con.Register("disconnect", "leave the server", func(Args) {
		c.Printf("Disconnected from server\n")
		c.Drop()
	})

	con.Register("changing", "the server is changing levels", func(Args) {
		c.Changing()
	})

	con.Register("rcon", "rcon <command...>", func(args Args) {
		argv := make([]string, 0, args.Argc())
		for i := 1; i < args.Argc(); i++ {
			argv = append(argv, args.Argv(i))
		}

		if err := c.Rcon(argv...); err != nil {
			c.log.WithError(err).Debug("rcon failed")
		}
	})

	con.Register("packet", "packet <destination> <contents>", func(args Args) {
		if args.Argc() != 3 {
			c.Printf("packet <destination> <contents>\n")
			return
		}

		if err := c.SendPacket(args.Argv(1), args.Argv(2)); err != nil {
			c.log.WithError(err).Debug("packet failed")
		}
	})

	con.Register("pingservers", "ask local and address book servers for their status", func(Args) {
		c.PingServers()
	})

	con.Register("cmd", "cmd <command...>", c.ForwardRawTail)
}
