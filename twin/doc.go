// Package twin models the digital twins of clinical actors and the
// stimulus/behaviour/outcome vocabulary of the orchestration engine. A
// twin mirrors one Practitioner, PractitionerRole, CareTeam, Group or
// HealthcareService and owns the set of chat rooms that actor participates
// in. Stimuli record what happened to a twin; behaviours react to stimuli
// or timer ticks; outcomes record what each behaviour execution produced.
package twin
