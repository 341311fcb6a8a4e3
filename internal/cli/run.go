package cli

import "context"

// Run is the high-level entrypoint: it accepts the argument slice (excluding
// argv[0]) and returns the semantic result plus any error.
func Run(ctx context.Context, args []string) (Result, error) {
	inv, err := ParseInvocation(args)
	if err != nil {
		return Result{ExitCode: ExitCode(err)}, err
	}
	return Execute(ctx, inv)
}
