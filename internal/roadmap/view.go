package roadmap

import "github.com/hpungsan/roadmap/internal/session"

// Messages shown to each role.
const (
	MsgGenerated     = "Roadmap generated successfully!"
	MsgPendingReview = "Review of roadmap by parents/teachers is pending!"
	MsgRegenerated   = "Roadmap updated successfully!"
	MsgFinalized     = "Roadmap finalized!"
	MsgNoRoadmap     = "No roadmap has been generated yet. Please generate it on the Student page."
	MsgGenerateError = "An error occurred while generating your roadmap. Please try again."
	MsgEmptyRoadmap  = "The model returned an empty roadmap."
)

// StudentView is what the student page shows.
type StudentView struct {
	Stage session.Stage `json:"stage"`
	// ShowForm is true until a roadmap exists.
	ShowForm bool `json:"show_form"`
	// ShowRoadmap is false right after generation while review is pending.
	ShowRoadmap bool   `json:"show_roadmap"`
	Roadmap     string `json:"roadmap,omitempty"`
	Success     string `json:"success,omitempty"`
	Notice      string `json:"notice,omitempty"`
}

// NewStudentView computes the student page. justGenerated is true for the
// response to the request that produced the roadmap.
func NewStudentView(st *session.State, justGenerated bool) StudentView {
	v := StudentView{Stage: st.Stage()}
	if !st.HasRoadmap() {
		v.ShowForm = true
		return v
	}

	v.Roadmap = st.RoadmapText()
	v.ShowRoadmap = true
	if justGenerated {
		v.Success = MsgGenerated
		if !st.Final {
			v.ShowRoadmap = false
			v.Notice = MsgPendingReview
		}
	}
	if v.ShowRoadmap && v.Roadmap == "" {
		v.Notice = MsgEmptyRoadmap
	}
	return v
}

// ReviewerView is what the Parent/Teacher page shows.
type ReviewerView struct {
	Stage          session.Stage `json:"stage"`
	Roadmap        string        `json:"roadmap,omitempty"`
	ShowRoadmap    bool          `json:"show_roadmap"`
	CanMakeChanges bool          `json:"can_make_changes"`
	// ShowFeedback gates the feedback box and the Regenerate and Finalize buttons.
	ShowFeedback bool   `json:"show_feedback"`
	Final        bool   `json:"final"`
	Notice       string `json:"notice,omitempty"`
}

// NewReviewerView computes the Parent/Teacher page.
func NewReviewerView(st *session.State) ReviewerView {
	stage := st.Stage()
	v := ReviewerView{
		Stage:          stage,
		Roadmap:        st.RoadmapText(),
		ShowRoadmap:    st.HasRoadmap(),
		CanMakeChanges: stage == session.StagePendingReview,
		ShowFeedback:   stage == session.StageEditing,
		Final:          stage == session.StageFinalized,
	}
	switch {
	case stage == session.StageNoRoadmap:
		v.Notice = MsgNoRoadmap
	case v.Final:
		v.Notice = MsgFinalized
	case v.Roadmap == "":
		v.Notice = MsgEmptyRoadmap
	}
	return v
}
