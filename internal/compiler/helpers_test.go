package compiler

import "time"

const ms = time.Millisecond
