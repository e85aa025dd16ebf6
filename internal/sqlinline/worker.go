package sqlinline

const QWorkerClaimDocument = `--sql 6e50ab3a-919a-47a3-be0d-571f9bb52f80
with next_doc as (
    select id
    from documents
    where status = 'uploaded'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update documents
    set status = 'processing', updated_at = now()
    where id in (select id from next_doc)
    returning id, account_id, storage_key, language
)
select * from updated;
`

const QWorkerMarkDocumentReady = `--sql 289cbf3a-4c8a-42aa-a766-3474d88dde4d
update documents
set status = 'ready',
    page_count = $2::int,
    extracted_text = $3::text,
    error_message = null,
    updated_at = now()
where id = $1::uuid;
`

const QWorkerMarkDocumentFailed = `--sql f88baa73-60db-4ef0-be28-106a1391a9d2
update documents
set status = 'failed',
    error_message = $2::text,
    updated_at = now()
where id = $1::uuid;
`
