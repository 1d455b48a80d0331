package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/answerdesk/pkg/dotdir"
)

var _ = Describe("dotdir", func() {
	var tmpDir string
	var m *dotdir.Manager

	// chdir moves into dir and points HOME at home for the rest of the spec.
	chdir := func(dir, home string) {
		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(dir)).To(Succeed())
		DeferCleanup(func() { os.Chdir(origDir) })

		origHome := os.Getenv("HOME")
		Expect(os.Setenv("HOME", home)).To(Succeed())
		DeferCleanup(func() { os.Setenv("HOME", origHome) })
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("Target", func() {
		It("creates the override directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("prefers the override over a local .answerdesk dir", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, ".answerdesk"), 0o755)).To(Succeed())
			chdir(tmpDir, tmpDir)

			overrideDir := filepath.Join(tmpDir, "override")
			result, err := m.Target(overrideDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(overrideDir))
		})

		It("returns the local .answerdesk dir when it exists", func() {
			local := filepath.Join(tmpDir, ".answerdesk")
			Expect(os.Mkdir(local, 0o755)).To(Succeed())
			chdir(tmpDir, filepath.Join(tmpDir, "nohome"))

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("falls back to the home .answerdesk dir", func() {
			home := filepath.Join(tmpDir, "home")
			Expect(os.MkdirAll(filepath.Join(home, ".answerdesk"), 0o755)).To(Succeed())
			work := filepath.Join(tmpDir, "work")
			Expect(os.Mkdir(work, 0o755)).To(Succeed())
			chdir(work, home)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(home, ".answerdesk")))
		})

		It("returns an empty path when nothing exists", func() {
			emptyDir := filepath.Join(tmpDir, "empty")
			Expect(os.Mkdir(emptyDir, 0o755)).To(Succeed())
			chdir(emptyDir, emptyDir)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(BeEmpty())
		})
	})

	Describe("Init", func() {
		It("creates .answerdesk under the parent", func() {
			result, err := m.Init(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(tmpDir, ".answerdesk")))

			info, err := os.Stat(result)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("is idempotent", func() {
			_, err := m.Init(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			_, err = m.Init(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
