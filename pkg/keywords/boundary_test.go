package keywords_test

import (
	"testing"

	"datasetmd/testutil"
)

func TestNoServiceDependencies(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.CoreImportForbidden, "keywords stays free of the service layer")
	testutil.AssertNoTransitiveDependency(t, ".", testutil.CoreImportForbidden, "keywords stays free of the service layer")
}
