package sqlinline

const QInsertStudyAid = `--sql c04baac6-59fb-4d62-93b7-9226f2d55921
insert into study_aids (id, account_id, document_id, kind, language, pages_charged, payload, provider, created_at)
values (gen_random_uuid(), $1::uuid, $2::uuid, $3::text, $4::text, $5::int, $6::jsonb, $7::text, now())
returning id;
`

const QListStudyAidsByDocument = `--sql b952d0ec-7f18-48bd-9d67-7cc0408f7c59
select id, account_id, document_id, kind, language, pages_charged, payload, provider, created_at
from study_aids
where document_id = $1::uuid and account_id = $2::uuid
order by created_at desc;
`
