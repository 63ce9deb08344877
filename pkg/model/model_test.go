package model

import "testing"

func TestJobDescription_Interactive(t *testing.T) {
	d := NewJobDescription("python wf.py", "ich001")
	i := d.Interactive()

	if _, ok := d[JobTypeKey]; ok {
		t.Error("Interactive() mutated the original description")
	}
	if i[JobTypeKey] != InteractiveJob || i[ExecutableKey] != "python wf.py" || i[ProjectKey] != "ich001" {
		t.Errorf("Interactive() = %v", i)
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	for _, s := range []JobStatus{JobUndefined, JobReady, JobQueued, JobStagingIn, JobRunning, JobStagingOut} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true", s)
		}
	}
	if !JobSuccessful.Terminal() || !JobFailed.Terminal() {
		t.Error("SUCCESSFUL and FAILED must be terminal")
	}
}

func TestSiteTable(t *testing.T) {
	src := map[string]string{"JUSUF": "Python", "DAINT-CSCS": "cray-python"}
	table := NewSiteTable(src)
	src["JUSUF"] = "changed"

	if got := table.Lookup("JUSUF").ModuleLoadCommand(); got != "module load Python" {
		t.Errorf("JUSUF = %q", got)
	}
	if got := table.Lookup("UNKNOWN").ModuleLoadCommand(); got != "module load" {
		t.Errorf("unknown site = %q", got)
	}
	if table.Known("UNKNOWN") {
		t.Error("UNKNOWN reported as known")
	}
	names := table.Names()
	if len(names) != 2 || names[0] != "DAINT-CSCS" {
		t.Errorf("Names() = %v", names)
	}
}

func TestRemoteEntry(t *testing.T) {
	e := Directory("/results/frames/")
	if !e.IsDir() || e.Path != "results/frames" || e.Name() != "frames" {
		t.Errorf("Directory() = %+v, name %q", e, e.Name())
	}
	f := File("ts.npy")
	if f.IsDir() || f.Name() != "ts.npy" {
		t.Errorf("File() = %+v", f)
	}
	entries := []RemoteEntry{f, e}
	if !ContainsDir(entries, "results/frames/") || ContainsDir(entries, "ts.npy") {
		t.Error("ContainsDir mismatch")
	}
}

func TestEnvironmentLayout(t *testing.T) {
	l := EnvironmentLayout{
		StorageName:    "HOME",
		EnvDir:         "tvb_xircuits",
		EnvName:        "venv",
		PythonVersion:  "3.9",
		Package:        "tvb-ext-xircuits",
		PackageVersion: "1.2.0",
		PipLibraries:   []string{"tvb-data"},
	}
	tests := []struct {
		name, got, want string
	}{
		{"site packages", l.SitePackagesPath(), "tvb_xircuits/venv/lib/python3.9/site-packages"},
		{"dist-info prefix", l.DistInfoPrefix(), "tvb_ext_xircuits-"},
		{"activate", l.ActivateCommand(), "source $HOME/tvb_xircuits/venv/bin/activate"},
		{"create", l.CreateEnvCommand(), "cd $HOME/tvb_xircuits && rm -rf venv && python -mvenv venv"},
		{"install", l.InstallCommand(), "pip install -U pip && pip install allensdk && pip install tvb-data tvb-ext-xircuits==1.2.0"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
	if len(l.PipLibraries) != 1 {
		t.Error("InstallCommand mutated PipLibraries")
	}
}
