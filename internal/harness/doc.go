// Package harness runs conformance test cases through the external
// Transcription → Compilation → Execution pipeline and classifies the result
// against recorded expectations.
//
// # Test Cases
//
// A test case is a source file in the tests directory. Its expectation lives
// next to it under the same base name with the expectation extension:
//
//	tests/add.ions   source
//	tests/add.txt    expectation
//
// # Pipeline
//
// Walk drives one test case through the stages in order and stops at the
// first stage that exits non-zero. Execution is terminal once reached.
// Compilation never runs unless Transcription exited 0, and Execution never
// runs unless Compilation exited 0.
//
// # Classification
//
// Runner compares the terminal stage outcome with the expectation:
//
//   - no expectation: Skipped, no stage is invoked
//   - terminal stage differs: Failed (stage mismatch)
//   - exit code differs: Failed (exit code mismatch); output is not compared
//   - output differs: Failed (output mismatch) with the first divergence
//   - otherwise: Passed
//
// A malformed expectation or a stage that cannot be run at all classifies the
// test case as Errored. Errors never escape a single test case: the suite
// always continues with the next one.
//
// # Generation
//
// Generator records a fresh expectation from the terminal stage of a real
// pipeline run. Existing expectations are kept unless generation is forced.
//
// # Usage
//
//	tests, err := harness.Discover("tests", harness.DiscoverOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	suite := harness.NewSuite(invoker)
//	outcomes := suite.Run(ctx, tests, nil)
//	summary := harness.Summarize(outcomes)
package harness
