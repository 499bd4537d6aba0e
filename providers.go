package main

import (
	// Import all provider modules to trigger their init() functions
	_ "github.com/rubiojr/eventa/pkg/providers/jsonfeed"
)
